package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"sync"
)

// DecodeArgs makes FFmpeg read any container from stdin and write
// 2-channel s16le PCM at 48 kHz to stdout.
var DecodeArgs = []string{
	"-hide_banner",
	"-loglevel", "quiet",
	"-i", "pipe:0",
	"-ac", "2",
	"-f", "s16le",
	"-ar", "48000",
	"pipe:1",
}

// Command is the executable and arguments a Pipeline spawns.
type Command struct {
	Path string
	Args []string
}

// FFmpegCommand returns the decode command for the given ffmpeg binary.
func FFmpegCommand(path string) Command {
	return Command{Path: path, Args: DecodeArgs}
}

var errKilled = errors.New("transcoder killed")

type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *io.PipeReader
	done   chan struct{}
}

// kill terminates the process and waits for it to be reaped. It is fine to
// call on a process that already exited.
func (p *process) kill() {
	_ = p.stdout.CloseWithError(errKilled)
	_ = p.stdin.Close()
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	<-p.done
}

// Pipeline owns at most one running transcoder process at a time.
type Pipeline struct {
	command Command

	mu       sync.Mutex
	proc     *process
	instance uint64
	disposed bool
}

func New(command Command) *Pipeline {
	return &Pipeline{command: command}
}

// NewFFmpeg returns a Pipeline running the decode command with the ffmpeg
// binary at path.
func NewFFmpeg(path string) *Pipeline {
	return New(FFmpegCommand(path))
}

// Start spawns the transcoder if it is not already running.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return ErrAlreadyDisposed
	}
	if p.proc != nil {
		return nil
	}
	return p.spawnLocked()
}

// Restart kills the running transcoder, if any, and spawns a fresh one.
func (p *Pipeline) Restart() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return ErrAlreadyDisposed
	}
	if p.proc != nil {
		p.proc.kill()
		p.proc = nil
	}
	return p.spawnLocked()
}

func (p *Pipeline) spawnLocked() error {
	if runtime.GOOS == "js" || runtime.GOOS == "wasip1" {
		return &SpawnError{Path: p.command.Path, Err: ErrUnsupportedPlatform}
	}

	path, err := exec.LookPath(p.command.Path)
	if err != nil {
		return &SpawnError{Path: p.command.Path, Err: err}
	}

	cmd := exec.Command(path, p.command.Args...)
	cmd.Stderr = nil

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &SpawnError{Path: path, Err: fmt.Errorf("unable to pipe stdin: %w", err)}
	}

	// Stdout goes through an io.Pipe so that Wait only returns once every
	// byte has been consumed by the reader.
	pr, pw := io.Pipe()
	cmd.Stdout = pw

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = pr.Close()
		return &SpawnError{Path: path, Err: err}
	}

	proc := &process{
		cmd:    cmd,
		stdin:  stdin,
		stdout: pr,
		done:   make(chan struct{}),
	}
	p.instance++
	instance := p.instance

	go func() {
		defer close(proc.done)
		err := cmd.Wait()
		if err != nil {
			_ = pw.CloseWithError(err)
		} else {
			_ = pw.Close()
		}
		slog.Debug("transcoder exited", "instance", instance, "pid", cmd.Process.Pid, "error", err)
	}()

	slog.Debug("transcoder started", "instance", instance, "pid", cmd.Process.Pid)
	p.proc = proc
	return nil
}

// Sink returns the stdin of the running transcoder.
func (p *Pipeline) Sink() io.WriteCloser {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.proc == nil {
		return closedSink{}
	}
	return p.proc.stdin
}

// Source returns the PCM output of the running transcoder.
func (p *Pipeline) Source() io.Reader {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.proc == nil {
		return closedSink{}
	}
	return p.proc.stdout
}

// Running reports whether a transcoder process has been spawned and not yet
// killed.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.proc != nil
}

// Instance identifies the current process. It changes on every spawn.
func (p *Pipeline) Instance() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instance
}

// Close kills the transcoder and releases its pipes.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return ErrAlreadyDisposed
	}
	p.disposed = true
	if p.proc != nil {
		p.proc.kill()
		p.proc = nil
	}
	return nil
}

type closedSink struct{}

func (closedSink) Write([]byte) (int, error) { return 0, ErrNotRunning }
func (closedSink) Read([]byte) (int, error)  { return 0, ErrNotRunning }
func (closedSink) Close() error              { return nil }
