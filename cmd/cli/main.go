package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/glizzus/jukebox/internal/config"
	"github.com/glizzus/jukebox/internal/notify"
	"github.com/glizzus/jukebox/internal/opus"
	"github.com/glizzus/jukebox/internal/pipeline"
	"github.com/glizzus/jukebox/internal/playback"
	"github.com/glizzus/jukebox/internal/source"
)

const (
	cliGuildID   = "cli"
	cliChannelID = "file"
)

// fileTransport "joins" by encoding into length-prefixed Opus frames on out.
type fileTransport struct {
	out     io.Writer
	bitrate int
}

func (t *fileTransport) Connect(ctx context.Context, guildID, channelID string) (playback.Connection, error) {
	enc, err := opus.NewEncoder(t.bitrate)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	return &fileConnection{
		channelID: channelID,
		sender:    opus.NewSender(enc, opus.NewFrameWriter(t.out)),
	}, nil
}

type fileConnection struct {
	channelID string
	sender    *opus.Sender
}

func (c *fileConnection) ChannelID() string { return c.channelID }
func (c *fileConnection) Sink() io.Writer   { return c.sender }

func (c *fileConnection) Disconnect() error {
	if err := c.sender.Flush(); err != nil {
		return err
	}
	return c.sender.Close()
}

func loadPlaybackConfig(ctx context.Context) (*config.PlaybackConfig, error) {
	if err := config.LoadEnv(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	slog.SetLogLoggerLevel(config.ParseLogLevel())
	return config.NewPlaybackConfigFromEnv(ctx)
}

func probeAction(c *cli.Context) error {
	target := c.Args().First()
	if target == "" {
		return cli.Exit("Please provide a URL to probe", 1)
	}
	cfg, err := loadPlaybackConfig(c.Context)
	if err != nil {
		return cli.Exit("Failed to load config: "+err.Error(), 1)
	}

	info, err := source.FFProbe{Path: cfg.FFprobePath}.Probe(c.Context, target)
	if err != nil {
		return cli.Exit("Failed to probe: "+err.Error(), 1)
	}
	log.Printf("title=%q duration=%s", info.Title, info.Duration)
	return nil
}

func playAction(c *cli.Context) error {
	cfg, err := loadPlaybackConfig(c.Context)
	if err != nil {
		return cli.Exit("Failed to load config: "+err.Error(), 1)
	}

	out, err := os.Create(c.String("out"))
	if err != nil {
		return cli.Exit("Failed to create output file: "+err.Error(), 1)
	}
	defer out.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver := &source.Resolver{
		Prober:    source.FFProbe{Path: cfg.FFprobePath},
		Client:    http.DefaultClient,
		ChunkSize: cfg.HTTPChunkSize,
	}
	registry := playback.NewRegistry(playback.RegistryConfig{
		Transport: &fileTransport{out: out, bitrate: cfg.OpusBitrate},
		NewPipeline: func() playback.Pipeline {
			return pipeline.NewFFmpeg(cfg.FFmpegPath)
		},
		TickPeriod:       cfg.TickPeriod,
		PreloadThreshold: cfg.PreloadThreshold,
	})
	defer registry.Close()
	go registry.Run(ctx)

	if _, err := registry.Join(ctx, cliGuildID, cliChannelID, ""); err != nil {
		return cli.Exit("Failed to open output: "+err.Error(), 1)
	}
	for _, target := range c.StringSlice("url") {
		if err := resolver.Validate(target); err != nil {
			return cli.Exit(fmt.Sprintf("Cannot play %s: %v", target, err), 1)
		}
		registry.Enqueue(cliGuildID, resolver.Load(target, "cli"))
	}

	result, err := registry.Play(ctx, cliGuildID)
	if err != nil {
		return cli.Exit("Failed to start playback: "+err.Error(), 1)
	}
	np, _ := registry.NowPlaying(cliGuildID)
	log.Println(result.Message(np.Title))

	ticker := time.NewTicker(c.Duration("poll"))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("Interrupted")
			return nil
		case <-ticker.C:
			np, playing := registry.NowPlaying(cliGuildID)
			if !playing && registry.QueueLength(cliGuildID) == 0 {
				log.Println("Queue finished")
				return nil
			}
			if playing {
				slog.Debug("Playing", "title", np.Title, "remaining", np.Remaining)
			}
		}
	}
}

func eventsAction(c *cli.Context) error {
	if err := config.LoadEnv(); err != nil && !os.IsNotExist(err) {
		return cli.Exit("Failed to load .env file: "+err.Error(), 1)
	}
	cfg, err := config.NewRedisConfigFromEnv(c.Context)
	if err != nil {
		return cli.Exit("Failed to load redis config: "+err.Error(), 1)
	}
	if !cfg.Enabled() {
		return cli.Exit("REDIS_ADDR is not set", 1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password})
	defer rdb.Close()
	stream := notify.NewRedisStream(rdb, cfg.Stream, cfg.MaxLen)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lastID := "$"
	if c.Bool("from-start") {
		lastID = "0"
	}
	for ctx.Err() == nil {
		events, err := stream.Tail(ctx, lastID, 100, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return cli.Exit("Failed to read events: "+err.Error(), 1)
		}
		for _, ev := range events {
			log.Printf("%s guild=%s code=%s %s", ev.Time.Format(time.RFC3339), ev.GuildID, ev.Code, ev.Message)
			lastID = ev.ID
		}
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:        "jukebox-cli",
		Description: "A development CLI tool for testing Jukebox without Discord",
		Commands: []*cli.Command{
			{
				Name:      "probe",
				Usage:     "Print the title and duration ffprobe reports for a URL",
				ArgsUsage: "<url>",
				Action:    probeAction,
			},
			{
				Name:   "play",
				Usage:  "Play URLs in order into a file of length-prefixed Opus frames",
				Action: playAction,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "url",
						Usage:    "URL to queue, may be repeated",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "out",
						Usage:    "File to write Opus frames to",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "poll",
						Usage: "How often to check whether the queue finished",
						Value: time.Second,
					},
				},
			},
			{
				Name:   "events",
				Usage:  "Follow the playback event stream in Redis",
				Action: eventsAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "from-start",
						Usage: "Read the whole stream instead of only new events",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error running CLI: %v", err)
	}
}
