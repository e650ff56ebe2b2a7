package source_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/glizzus/jukebox/internal/datalayer"
	"github.com/glizzus/jukebox/internal/source"
)

type fakeProber struct {
	info  source.Info
	err   error
	calls []string
}

func (p *fakeProber) Probe(ctx context.Context, url string) (source.Info, error) {
	p.calls = append(p.calls, url)
	return p.info, p.err
}

type memoryStorage struct {
	objects map[string][]byte
}

func (m *memoryStorage) Put(ctx context.Context, key string, data io.Reader, opts datalayer.PutOptions) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[key] = b
	return nil
}

func (m *memoryStorage) Get(ctx context.Context, key string) (*datalayer.Object, error) {
	b, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &datalayer.Object{ReadCloser: io.NopCloser(bytes.NewReader(b)), Size: int64(len(b))}, nil
}

func (m *memoryStorage) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://storage.local/" + key + "?signed", nil
}

func TestResolver_Validate(t *testing.T) {
	withStorage := &source.Resolver{Storage: &memoryStorage{}}
	withoutStorage := &source.Resolver{}

	tests := []struct {
		name     string
		resolver *source.Resolver
		target   string
		want     error
	}{
		{name: "https", resolver: withoutStorage, target: "https://example.com/a.mp3"},
		{name: "http", resolver: withoutStorage, target: "http://example.com/a.mp3"},
		{name: "blob", resolver: withStorage, target: "blob://uploads/a.mp3"},
		{name: "blob without storage", resolver: withoutStorage, target: "blob://uploads/a.mp3", want: source.ErrNoBlobStorage},
		{name: "file", resolver: withStorage, target: "file:///etc/passwd", want: source.ErrUnsupportedTarget},
		{name: "no host", resolver: withStorage, target: "https:///a.mp3", want: source.ErrUnsupportedTarget},
		{name: "not a url", resolver: withStorage, target: "never gonna give you up", want: source.ErrUnsupportedTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.resolver.Validate(tt.target)
			if tt.want == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestResolver_LoadHTTP(t *testing.T) {
	content := []byte("some encoded audio")
	srv := newFileServer(t, content, false)
	prober := &fakeProber{info: source.Info{Title: "Take On Me", Duration: 3 * time.Minute}}
	r := &source.Resolver{Prober: prober, Client: srv.Client(), ChunkSize: 4}

	load := r.Load(srv.URL+"/take-on-me.mp3", "alice")
	if len(prober.calls) != 0 {
		t.Fatalf("expected Load to stay lazy")
	}

	track, err := load(t.Context())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer track.Source.Close()

	if track.Title != "Take On Me" || track.Duration != 3*time.Minute || track.Requester != "alice" {
		t.Errorf("unexpected track %+v", track)
	}
	got, err := io.ReadAll(track.Source)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("expected %q, got %q", content, got)
	}
}

func TestResolver_ProbeFailureStillPlays(t *testing.T) {
	srv := newFileServer(t, []byte("audio"), false)
	r := &source.Resolver{Prober: &fakeProber{err: errors.New("ffprobe: not found")}, Client: srv.Client()}

	track, err := r.Load(srv.URL+"/Everything%20She%20Wants.mp3", "bob")(t.Context())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer track.Source.Close()

	if track.Duration != 0 {
		t.Errorf("expected an untimed track, got %v", track.Duration)
	}
	if track.Title != "Everything She Wants.mp3" {
		t.Errorf("expected title from the URL, got %q", track.Title)
	}
}

func TestResolver_LoadBlob(t *testing.T) {
	storage := &memoryStorage{objects: map[string][]byte{"uploads/wham.mp3": []byte("wham")}}
	prober := &fakeProber{}
	r := &source.Resolver{Prober: prober, Storage: storage}

	track, err := r.Load("blob://uploads/wham.mp3", "carol")(t.Context())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer track.Source.Close()

	if diff := cmp.Diff([]string{"https://storage.local/uploads/wham.mp3?signed"}, prober.calls); diff != "" {
		t.Errorf("probe mismatch (-want +got):\n%s", diff)
	}
	if track.Title != "wham.mp3" {
		t.Errorf("expected fallback title, got %q", track.Title)
	}
	if size, ok := track.Source.Size(); !ok || size != 4 {
		t.Errorf("expected size 4, got %d (known=%v)", size, ok)
	}

	_, err = r.Load("blob://uploads/missing.mp3", "carol")(t.Context())
	if err == nil {
		t.Errorf("expected a missing blob to fail")
	}
}

func TestParseProbeOutput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    source.Info
		wantErr bool
	}{
		{
			name:  "title and artist",
			input: `{"format":{"duration":"215.500000","tags":{"title":"Take On Me","ARTIST":"a-ha"}}}`,
			want:  source.Info{Title: "a-ha - Take On Me", Duration: 215500 * time.Millisecond},
		},
		{
			name:  "title only",
			input: `{"format":{"duration":"5","tags":{"TITLE":" Wham "}}}`,
			want:  source.Info{Title: "Wham", Duration: 5 * time.Second},
		},
		{
			name:  "live stream",
			input: `{"format":{"duration":"N/A"}}`,
			want:  source.Info{},
		},
		{
			name:  "empty",
			input: `{}`,
			want:  source.Info{},
		},
		{
			name:    "garbage",
			input:   `not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := source.ParseProbeOutput([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("info mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
