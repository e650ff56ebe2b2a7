package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/glizzus/jukebox/internal/audio"
	"github.com/glizzus/jukebox/internal/datalayer"
	"github.com/glizzus/jukebox/internal/queue"
)

// BlobScheme marks a target stored in blob storage, as in blob://<key>.
const BlobScheme = "blob"

const presignExpiry = 15 * time.Minute

var (
	ErrUnsupportedTarget = errors.New("unsupported audio target")
	ErrNoBlobStorage     = errors.New("blob storage is not configured")
)

// Resolver turns user supplied targets into lazy track loaders.
type Resolver struct {
	Prober    Prober
	Client    HTTPClient
	ChunkSize int64

	// Storage serves blob:// targets. May be nil.
	Storage datalayer.BlobStorage
}

// Validate rejects targets that can never load, so they fail at enqueue time.
func (r *Resolver) Validate(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedTarget, err)
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return fmt.Errorf("%w: missing host", ErrUnsupportedTarget)
		}
		return nil
	case BlobScheme:
		if r.Storage == nil {
			return ErrNoBlobStorage
		}
		if blobKey(u) == "" {
			return fmt.Errorf("%w: missing key", ErrUnsupportedTarget)
		}
		return nil
	default:
		return fmt.Errorf("%w: scheme %q", ErrUnsupportedTarget, u.Scheme)
	}
}

func blobKey(u *url.URL) string {
	return strings.TrimPrefix(u.Host+u.Path, "/")
}

// Load returns a loader for target. Nothing is fetched until the loader runs.
func (r *Resolver) Load(target, requester string) queue.LoadFunc {
	return func(ctx context.Context) (*queue.Track, error) {
		if err := r.Validate(target); err != nil {
			return nil, err
		}
		u, _ := url.Parse(target)

		probeURL := target
		if u.Scheme == BlobScheme {
			presigned, err := r.Storage.PresignedURL(ctx, blobKey(u), presignExpiry)
			if err != nil {
				return nil, err
			}
			probeURL = presigned
		}

		info := r.probe(ctx, probeURL)
		if info.Title == "" {
			info.Title = fallbackTitle(u)
		}

		var src audio.Source
		var err error
		if u.Scheme == BlobScheme {
			src, err = OpenBlob(ctx, r.Storage, blobKey(u))
		} else {
			src, err = OpenHTTP(ctx, r.Client, target, r.ChunkSize)
		}
		if err != nil {
			return nil, fmt.Errorf("unable to open %s: %w", info.Title, err)
		}

		slog.Debug("loaded track", "title", info.Title, "duration", info.Duration, "requester", requester)
		return &queue.Track{
			Title:     info.Title,
			Duration:  info.Duration,
			Source:    src,
			Requester: requester,
		}, nil
	}
}

// probe never fails the load: a track without metadata still plays, untimed.
func (r *Resolver) probe(ctx context.Context, target string) Info {
	if r.Prober == nil {
		return Info{}
	}
	info, err := r.Prober.Probe(ctx, target)
	if err != nil {
		slog.Warn("failed to probe track, playing without duration", "error", err)
		return Info{}
	}
	return info
}

func fallbackTitle(u *url.URL) string {
	if u.Scheme == BlobScheme {
		return path.Base(blobKey(u))
	}
	if base := path.Base(u.Path); base != "/" && base != "." {
		return base
	}
	return u.Host
}
