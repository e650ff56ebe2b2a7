package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"

	"github.com/glizzus/jukebox/internal/config"
	"github.com/glizzus/jukebox/internal/datalayer"
	"github.com/glizzus/jukebox/internal/generator"
	"github.com/glizzus/jukebox/internal/handler"
	"github.com/glizzus/jukebox/internal/notify"
	"github.com/glizzus/jukebox/internal/opus"
	"github.com/glizzus/jukebox/internal/pipeline"
	"github.com/glizzus/jukebox/internal/playback"
	"github.com/glizzus/jukebox/internal/source"
	"github.com/glizzus/jukebox/internal/voice"
)

const uploadsPrefix = "uploads"

func runBotForever() error {
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}
	slog.SetLogLoggerLevel(config.ParseLogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	discordConfig, err := config.NewDiscordConfigFromEnv(ctx)
	if err != nil {
		return fmt.Errorf("failed to load discord config: %w", err)
	}
	playbackConfig, err := config.NewPlaybackConfigFromEnv(ctx)
	if err != nil {
		return fmt.Errorf("failed to load playback config: %w", err)
	}
	redisConfig, err := config.NewRedisConfigFromEnv(ctx)
	if err != nil {
		return fmt.Errorf("failed to load redis config: %w", err)
	}
	minioConfig, err := config.NewMinioConfigFromEnv(ctx)
	if err != nil {
		return fmt.Errorf("failed to load minio config: %w", err)
	}

	session, err := handler.NewSession(discordConfig.Token, handler.Handlers{
		Ready: handler.ReadyLog,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	notifiers := notify.Multi{notify.Log{}, &notify.Discord{Session: session}}
	if redisConfig.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     redisConfig.Addr,
			Password: redisConfig.Password,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		notifiers = append(notifiers, notify.NewRedisStream(rdb, redisConfig.Stream, redisConfig.MaxLen))
		slog.Info("Publishing playback events", "stream", redisConfig.Stream)
	}

	resolver := &source.Resolver{
		Prober:    source.FFProbe{Path: playbackConfig.FFprobePath},
		Client:    http.DefaultClient,
		ChunkSize: playbackConfig.HTTPChunkSize,
	}

	var uploads *handler.AudioPiper
	if minioConfig.Enabled() {
		minioStorage, err := datalayer.NewMinioStorage(minioConfig)
		if err != nil {
			return fmt.Errorf("failed to create minio storage: %w", err)
		}
		if err := minioStorage.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure minio bucket: %w", err)
		}
		resolver.Storage = minioStorage
		uploads = handler.NewAudioPiper(minioStorage, http.DefaultClient, uploadsPrefix)
	}

	registry := playback.NewRegistry(playback.RegistryConfig{
		Transport: voice.NewTransport(voice.TransportConfig{
			Gateway: voice.DiscordGateway{Session: session},
			NewEncoder: func() (opus.Encoder, error) {
				return opus.NewEncoder(playbackConfig.OpusBitrate)
			},
			SendTimeout: playbackConfig.SendTimeout,
		}),
		Notifier: notifiers,
		NewPipeline: func() playback.Pipeline {
			return pipeline.NewFFmpeg(playbackConfig.FFmpegPath)
		},
		TickPeriod:       playbackConfig.TickPeriod,
		PreloadThreshold: playbackConfig.PreloadThreshold,
	})
	defer func() {
		if err := registry.Close(); err != nil {
			slog.Warn("failed to close playback sessions", "error", err)
		}
	}()

	interactionHandler := handler.NewInteractionHandler(handler.Deps{
		Player:  registry,
		Loader:  resolver,
		Voice:   handler.StateVoiceLocator(session),
		Uploads: uploads,
	}, &generator.UUIDV7Generator{})
	session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		interactionHandler(s, i)
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close session", "error", err)
		}
	}()

	if err := handler.EstablishCommands(session, discordConfig.CommandGuildID()); err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}

	runDone := make(chan error, 1)
	go func() {
		runDone <- registry.Run(ctx)
	}()

	slog.Info("Bot is running, press Ctrl+C to exit")
	<-ctx.Done()

	if err := <-runDone; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("playback loop failed: %w", err)
	}
	return nil
}

func main() {
	if err := runBotForever(); err != nil {
		log.Fatalf("failed to run bot: %v", err)
	}
}
