package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Info is what a probe learns about a remote file.
type Info struct {
	Title    string
	Duration time.Duration
}

type Prober interface {
	Probe(ctx context.Context, url string) (Info, error)
}

// FFProbe reads container metadata with the ffprobe binary.
type FFProbe struct {
	Path string
}

var _ Prober = FFProbe{}

func (p FFProbe) Probe(ctx context.Context, url string) (Info, error) {
	path := p.Path
	if path == "" {
		path = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, path,
		"-v", "quiet",
		"-print_format", "json",
		"-show_entries", "format=duration:format_tags=title,artist",
		url,
	)
	out, err := cmd.Output()
	if err != nil {
		return Info{}, fmt.Errorf("unable to probe %s: %w", url, err)
	}
	return ParseProbeOutput(out)
}

type probeOutput struct {
	Format struct {
		Duration string            `json:"duration"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
}

// ParseProbeOutput reads ffprobe's JSON output. A missing or non-numeric
// duration yields 0, meaning unknown.
func ParseProbeOutput(data []byte) (Info, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Info{}, fmt.Errorf("unable to parse probe output: %w", err)
	}

	var info Info
	if seconds, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil && seconds > 0 {
		info.Duration = time.Duration(seconds * float64(time.Second))
	}

	tags := make(map[string]string, len(out.Format.Tags))
	for k, v := range out.Format.Tags {
		tags[strings.ToLower(k)] = strings.TrimSpace(v)
	}
	switch title, artist := tags["title"], tags["artist"]; {
	case title != "" && artist != "":
		info.Title = artist + " - " + title
	default:
		info.Title = title
	}
	return info, nil
}
