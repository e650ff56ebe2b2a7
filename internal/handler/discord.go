package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/glizzus/jukebox/internal/datalayer"
	"github.com/glizzus/jukebox/internal/generator"
	"github.com/glizzus/jukebox/internal/playback"
	"github.com/glizzus/jukebox/internal/presenters"
	"github.com/glizzus/jukebox/internal/queue"
	"github.com/glizzus/jukebox/internal/source"
	"github.com/glizzus/jukebox/internal/util"
)

type ReadyHandler = func(*discordgo.Session, *discordgo.Ready)
type InteractionCreateHandler = func(*discordgo.Session, *discordgo.InteractionCreate)

var ReadyLog = func(s *discordgo.Session, r *discordgo.Ready) {
	username := r.User.Username
	userID := r.User.ID
	slog.Info("Bot is ready", "username", username, "userID", userID)
}

// DiscordSession is the part of a discordgo session handlers respond with.
type DiscordSession interface {
	InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, opts ...discordgo.RequestOption) error
	InteractionResponseEdit(i *discordgo.Interaction, wh *discordgo.WebhookEdit, opts ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ DiscordSession = (*discordgo.Session)(nil)

// Player controls per-guild playback. *playback.Registry implements it.
type Player interface {
	Join(ctx context.Context, guildID, channelID, commandChannelID string) (playback.JoinResult, error)
	Enqueue(guildID string, load queue.LoadFunc) bool
	Play(ctx context.Context, guildID string) (playback.PlayResult, error)
	Pause(guildID string) (playback.PauseResult, error)
	Resume(ctx context.Context, guildID string) (playback.PlayResult, error)
	Skip(ctx context.Context, guildID string) (playback.PlayResult, error)
	NowPlaying(guildID string) (playback.NowPlaying, bool)
	QueueLength(guildID string) int
	Leave(guildID string) bool
}

var _ Player = (*playback.Registry)(nil)

// Loader turns a user supplied target into a track loader.
// *source.Resolver implements it.
type Loader interface {
	Validate(target string) error
	Load(target, requester string) queue.LoadFunc
}

var _ Loader = (*source.Resolver)(nil)

// VoiceLocator finds the voice channel a user is in, or "".
type VoiceLocator func(guildID, userID string) string

// StateVoiceLocator looks users up in the session's state cache.
func StateVoiceLocator(s *discordgo.Session) VoiceLocator {
	return func(guildID, userID string) string {
		vs, err := s.State.VoiceState(guildID, userID)
		if err != nil {
			return ""
		}
		return vs.ChannelID
	}
}

// Deps are the collaborators of the command flows.
type Deps struct {
	Player Player
	Loader Loader
	Voice  VoiceLocator

	// Uploads stores attached files. Nil disables playing attachments.
	Uploads *AudioPiper
}

// commandTimeout bounds a single command, including joining voice and
// loading the first track.
const commandTimeout = 30 * time.Second

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// NewInteractionHandler routes interactions through the command flows.
// UserErrors are shown to the user; anything else is only logged.
func NewInteractionHandler(deps Deps, idGenerator generator.Generator[string]) func(DiscordSession, *discordgo.InteractionCreate) {
	fm := NewFlowManager(idGenerator)
	for _, flow := range NewFlows(deps) {
		fm.RegisterFlow(flow)
	}

	return func(s DiscordSession, i *discordgo.InteractionCreate) {
		err := fm.Router(s, i)
		if err == nil {
			return
		}

		var userErr *UserError
		if errors.As(err, &userErr) {
			if err := s.InteractionRespond(i.Interaction, presenters.EphemeralResponse(userErr.Message)); err != nil {
				slog.Error("Failed to respond with user error", "error", err)
			}
			return
		}
		slog.Error("Failed to handle interaction", "guildID", i.GuildID, "error", err)
	}
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func findOption(
	options []*discordgo.ApplicationCommandInteractionDataOption,
	name string,
) (*discordgo.ApplicationCommandInteractionDataOption, bool) {
	return util.FindFirst(options, func(o *discordgo.ApplicationCommandInteractionDataOption) bool {
		return o.Name == name
	})
}

// HTTPClient is an abstraction for making HTTP requests.
// The implementation is usually Go's stdlib http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// AudioPiper is a struct that performs the operation
// of downloading and immediately uploading.
type AudioPiper struct {
	blobStorage datalayer.BlobStorage
	httpClient  HTTPClient
	prefix      string
}

func NewAudioPiper(blobStorage datalayer.BlobStorage, httpClient HTTPClient, prefix string) *AudioPiper {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AudioPiper{blobStorage: blobStorage, httpClient: httpClient, prefix: prefix}
}

// Pipe copies sourceURL into blob storage under key and returns the target
// that plays it back.
func (a *AudioPiper) Pipe(ctx context.Context, key, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	slog.Debug("Downloading file", "url", sourceURL)
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	slog.Debug("Received response", "status", resp.Status)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download file: %s", resp.Status)
	}

	if a.prefix != "" {
		key = a.prefix + "/" + key
	}
	err = a.blobStorage.Put(ctx, key, resp.Body, datalayer.PutOptions{
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return blobTarget(key), nil
}

// blobTarget escapes each segment of key so file names survive URL parsing.
func blobTarget(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return source.BlobScheme + "://" + strings.Join(segments, "/")
}

type Handlers struct {
	Ready             ReadyHandler
	InteractionCreate InteractionCreateHandler
}

func NewSession(token string, handlers Handlers) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	if handlers.Ready != nil {
		s.AddHandler(handlers.Ready)
	}
	if handlers.InteractionCreate != nil {
		s.AddHandler(handlers.InteractionCreate)
	}

	return s, nil
}
