package source

import (
	"context"

	"github.com/glizzus/jukebox/internal/audio"
	"github.com/glizzus/jukebox/internal/datalayer"
)

// OpenBlob streams a stored object as a track source.
func OpenBlob(ctx context.Context, storage datalayer.BlobStorage, key string) (audio.Source, error) {
	obj, err := storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return audio.NewCountingSource(obj, obj.Size), nil
}
