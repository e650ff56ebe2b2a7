package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/glizzus/jukebox/internal/playback"
	"github.com/glizzus/jukebox/internal/presenters"
	"github.com/glizzus/jukebox/internal/util"
)

func commandMatcher(name string) func(*discordgo.InteractionCreate) bool {
	return func(i *discordgo.InteractionCreate) bool {
		if i.Type != discordgo.InteractionApplicationCommand {
			return false
		}
		return i.ApplicationCommandData().Name == name
	}
}

func componentMatcher(componentID string) func(*discordgo.InteractionCreate) bool {
	return func(i *discordgo.InteractionCreate) bool {
		if i.Type != discordgo.InteractionMessageComponent {
			return false
		}
		return strings.HasPrefix(i.MessageComponentData().CustomID, componentID+":")
	}
}

func respond(s DiscordSession, i *discordgo.InteractionCreate, resp *discordgo.InteractionResponse) error {
	return s.InteractionRespond(i.Interaction, resp)
}

var PingFlow = &Flow{
	ID: CommandPing,
	Root: &Node{
		ID:      CommandPing,
		Matcher: commandMatcher(CommandPing),
		Handler: func(s DiscordSession, i *discordgo.InteractionCreate, ctx *FlowContext) error {
			return respond(s, i, presenters.MessageResponse("Pong!"))
		},
	},
}

// NewFlows builds every command flow on top of deps.
func NewFlows(deps Deps) []*Flow {
	return []*Flow{
		PingFlow,
		joinFlow(deps),
		playFlow(deps),
		pauseFlow(deps),
		resumeFlow(deps),
		skipFlow(deps),
		nowPlayingFlow(deps),
		leaveFlow(deps),
	}
}

func singleStep(name string, handler func(DiscordSession, *discordgo.InteractionCreate, *FlowContext) error) *Flow {
	return &Flow{
		ID: name,
		Root: &Node{
			ID:      name,
			Matcher: commandMatcher(name),
			Handler: handler,
		},
	}
}

func joinFlow(deps Deps) *Flow {
	return singleStep(CommandJoin, func(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
		var channelID string
		if opt, ok := findOption(i.ApplicationCommandData().Options, optionChannel); ok {
			channelID = opt.ChannelValue(nil).ID
		} else if deps.Voice != nil {
			channelID = deps.Voice(i.GuildID, interactionUserID(i))
		}
		if channelID == "" {
			return respond(s, i, presenters.BuildJoinResponse(playback.JoinNonVoiceChannel, ""))
		}

		ctx, cancel := commandContext()
		defer cancel()

		result, err := deps.Player.Join(ctx, i.GuildID, channelID, i.ChannelID)
		if err != nil {
			slog.Error("Failed to join voice channel", "guildID", i.GuildID, "channelID", channelID, "error", err)
		}
		return respond(s, i, presenters.BuildJoinResponse(result, channelID))
	})
}

func playFlow(deps Deps) *Flow {
	return singleStep(CommandPlay, func(s DiscordSession, i *discordgo.InteractionCreate, ctx *FlowContext) error {
		data := i.ApplicationCommandData()

		var target string
		if opt, ok := findOption(data.Options, optionURL); ok {
			target = strings.TrimSpace(opt.StringValue())
		}

		var attachment *discordgo.MessageAttachment
		if _, ok := findOption(data.Options, optionFile); ok && data.Resolved != nil {
			var err error
			attachment, err = util.GetOne(data.Resolved.Attachments)
			if err != nil {
				return &UserError{Message: "Attach exactly one audio file."}
			}
		}

		switch {
		case target == "" && attachment == nil:
			return &UserError{Message: "Give me a link or a file to play."}
		case attachment != nil && deps.Uploads == nil:
			return &UserError{Message: "Playing uploaded files is not enabled."}
		case target != "":
			if err := deps.Loader.Validate(target); err != nil {
				return &UserError{Message: fmt.Sprintf("I can't play that: %v", err)}
			}
		}

		// Loading the first track can outlast the interaction deadline.
		if err := respond(s, i, presenters.DeferredResponse); err != nil {
			return err
		}

		cctx, cancel := commandContext()
		defer cancel()

		edit := func(result playback.PlayResult, title string) error {
			_, err := s.InteractionResponseEdit(i.Interaction, presenters.BuildPlayEdit(result, title))
			return err
		}

		if attachment != nil {
			uploaded, err := deps.Uploads.Pipe(cctx, ctx.InstanceID+"/"+attachment.Filename, attachment.URL)
			if err != nil {
				slog.Error("Failed to store attachment", "guildID", i.GuildID, "error", err)
				return edit(playback.PlayFailed, "")
			}
			target = uploaded
		}

		if !deps.Player.Enqueue(i.GuildID, deps.Loader.Load(target, interactionUserID(i))) {
			return edit(playback.PlayNotConnected, "")
		}

		result, err := deps.Player.Play(cctx, i.GuildID)
		if err != nil {
			slog.Error("Failed to start playback", "guildID", i.GuildID, "error", err)
		}
		np, _ := deps.Player.NowPlaying(i.GuildID)
		return edit(result, np.Title)
	})
}

func pauseFlow(deps Deps) *Flow {
	return singleStep(CommandPause, func(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
		result, err := deps.Player.Pause(i.GuildID)
		if err != nil && !errors.Is(err, playback.ErrSessionDisposed) {
			slog.Error("Failed to pause", "guildID", i.GuildID, "error", err)
		}
		return respond(s, i, presenters.BuildPauseResponse(result))
	})
}

func resumeFlow(deps Deps) *Flow {
	return singleStep(CommandResume, func(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
		ctx, cancel := commandContext()
		defer cancel()

		result, err := deps.Player.Resume(ctx, i.GuildID)
		if err != nil {
			slog.Error("Failed to resume", "guildID", i.GuildID, "error", err)
		}
		np, _ := deps.Player.NowPlaying(i.GuildID)
		return respond(s, i, presenters.BuildPlayResponse(result, np.Title))
	})
}

func skipFlow(deps Deps) *Flow {
	return singleStep(CommandSkip, func(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
		ctx, cancel := commandContext()
		defer cancel()

		result, err := deps.Player.Skip(ctx, i.GuildID)
		if err != nil {
			slog.Error("Failed to skip", "guildID", i.GuildID, "error", err)
		}
		np, _ := deps.Player.NowPlaying(i.GuildID)
		return respond(s, i, presenters.BuildPlayResponse(result, np.Title))
	})
}

func nowPlayingFlow(deps Deps) *Flow {
	return singleStep(CommandNowPlaying, func(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
		np, ok := deps.Player.NowPlaying(i.GuildID)
		return respond(s, i, presenters.BuildNowPlayingResponse(np, ok, deps.Player.QueueLength(i.GuildID)))
	})
}

const (
	leftMessage    = "Left the channel."
	stayingMessage = "Staying."
)

// leaveFlow asks for confirmation when leaving would cut off a playing track.
func leaveFlow(deps Deps) *Flow {
	leave := func(s DiscordSession, i *discordgo.InteractionCreate, update bool) error {
		message := leftMessage
		if !deps.Player.Leave(i.GuildID) {
			message = playback.PlayNotConnected.Message("")
		}
		if update {
			return respond(s, i, presenters.BuildUpdateResponse(message))
		}
		return respond(s, i, presenters.MessageResponse(message))
	}

	return &Flow{
		ID: CommandLeave,
		Root: &Node{
			ID:      CommandLeave,
			Matcher: commandMatcher(CommandLeave),
			Handler: func(s DiscordSession, i *discordgo.InteractionCreate, ctx *FlowContext) error {
				np, ok := deps.Player.NowPlaying(i.GuildID)
				if !ok || np.Paused {
					ctx.Finish()
					return leave(s, i, false)
				}
				return respond(s, i, presenters.BuildLeaveConfirmResponse(ctx.InstanceID, np.Title))
			},
			Next: []*Node{
				{
					ID:      presenters.ComponentIDLeaveConfirm,
					Matcher: componentMatcher(presenters.ComponentIDLeaveConfirm),
					Handler: func(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
						return leave(s, i, true)
					},
				},
				{
					ID:      presenters.ComponentIDLeaveCancel,
					Matcher: componentMatcher(presenters.ComponentIDLeaveCancel),
					Handler: func(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
						return respond(s, i, presenters.BuildUpdateResponse(stayingMessage))
					},
				},
			},
		},
	}
}
