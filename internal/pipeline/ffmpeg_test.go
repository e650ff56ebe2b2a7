package pipeline_test

import (
	"errors"
	"io"
	"os/exec"
	"testing"

	"github.com/glizzus/jukebox/internal/pipeline"
	"github.com/google/go-cmp/cmp"
)

// catPipeline echoes stdin to stdout, standing in for the transcoder.
func catPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat is not available")
	}
	p := pipeline.New(pipeline.Command{Path: "cat"})
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestDecodeArgs(t *testing.T) {
	want := []string{
		"-hide_banner",
		"-loglevel", "quiet",
		"-i", "pipe:0",
		"-ac", "2",
		"-f", "s16le",
		"-ar", "48000",
		"pipe:1",
	}
	got := pipeline.FFmpegCommand("/usr/bin/ffmpeg")
	if got.Path != "/usr/bin/ffmpeg" {
		t.Errorf("expected path /usr/bin/ffmpeg, got %s", got.Path)
	}
	if diff := cmp.Diff(want, got.Args); diff != "" {
		t.Errorf("decode arguments mismatch (-want +got):\n%s", diff)
	}
}

func TestPipelineRoundTrip(t *testing.T) {
	p := catPipeline(t)
	if err := p.Start(); err != nil {
		t.Fatalf("failed to start: %v", err)
	}

	payload := []byte("raw audio bytes")
	go func() {
		sink := p.Sink()
		_, _ = sink.Write(payload)
		_ = sink.Close()
	}()

	got, err := io.ReadAll(p.Source())
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("expected %q, got %q", payload, got)
	}
}

func TestPipelineStartIsIdempotent(t *testing.T) {
	p := catPipeline(t)
	if err := p.Start(); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	first := p.Instance()
	if err := p.Start(); err != nil {
		t.Fatalf("failed to start again: %v", err)
	}
	if p.Instance() != first {
		t.Errorf("expected Start on a running pipeline to keep instance %d, got %d", first, p.Instance())
	}
}

func TestPipelineRestartReplacesProcess(t *testing.T) {
	p := catPipeline(t)
	if err := p.Start(); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	before := p.Instance()
	oldSource := p.Source()

	if err := p.Restart(); err != nil {
		t.Fatalf("failed to restart: %v", err)
	}
	if p.Instance() == before {
		t.Errorf("expected a new instance after restart")
	}

	if _, err := io.ReadAll(oldSource); err == nil {
		t.Errorf("expected reading the killed process to fail")
	}
	if !p.Running() {
		t.Errorf("expected pipeline to be running after restart")
	}
}

func TestPipelineRestartAfterExit(t *testing.T) {
	p := catPipeline(t)
	if err := p.Start(); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	_ = p.Sink().Close()
	_, _ = io.ReadAll(p.Source())

	if err := p.Restart(); err != nil {
		t.Errorf("expected restart of an exited process to succeed, got %v", err)
	}
}

func TestPipelineSpawnFailure(t *testing.T) {
	p := pipeline.New(pipeline.Command{Path: "definitely-not-a-transcoder-binary"})

	err := p.Start()
	if !errors.Is(err, pipeline.ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
	var spawnErr *pipeline.SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("expected *SpawnError, got %T", err)
	}
	if p.Running() {
		t.Errorf("expected pipeline not to be running")
	}
	if _, err := p.Sink().Write([]byte{0}); !errors.Is(err, pipeline.ErrNotRunning) {
		t.Errorf("expected ErrNotRunning from sink, got %v", err)
	}
}

func TestPipelineDoubleClose(t *testing.T) {
	p := catPipeline(t)
	if err := p.Start(); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("unexpected error on first close: %v", err)
	}
	if err := p.Close(); !errors.Is(err, pipeline.ErrAlreadyDisposed) {
		t.Errorf("expected ErrAlreadyDisposed, got %v", err)
	}
	if err := p.Restart(); !errors.Is(err, pipeline.ErrAlreadyDisposed) {
		t.Errorf("expected restart after close to fail, got %v", err)
	}
}
