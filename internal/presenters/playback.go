package presenters

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/glizzus/jukebox/internal/playback"
)

const (
	ComponentIDLeaveConfirm = "leave_confirm"
	ComponentIDLeaveCancel  = "leave_cancel"
)

func MessageResponse(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	}
}

// EphemeralResponse is only shown to the user who ran the command.
func EphemeralResponse(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}

// DeferredResponse acknowledges a command whose answer follows as an edit.
var DeferredResponse = &discordgo.InteractionResponse{
	Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
}

func BuildJoinResponse(result playback.JoinResult, channelID string) *discordgo.InteractionResponse {
	return MessageResponse(result.Message(channelID))
}

func BuildPauseResponse(result playback.PauseResult) *discordgo.InteractionResponse {
	return MessageResponse(result.Message())
}

func BuildPlayResponse(result playback.PlayResult, title string) *discordgo.InteractionResponse {
	return MessageResponse(result.Message(title))
}

// BuildPlayEdit is the follow-up to a deferred play command.
func BuildPlayEdit(result playback.PlayResult, title string) *discordgo.WebhookEdit {
	content := result.Message(title)
	return &discordgo.WebhookEdit{Content: &content}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func BuildNowPlayingResponse(np playback.NowPlaying, playing bool, queued int) *discordgo.InteractionResponse {
	if !playing {
		return MessageResponse("Nothing is playing.")
	}

	position := "live"
	if np.Duration > 0 {
		position = fmt.Sprintf("%s / %s", formatDuration(np.Duration-np.Remaining), formatDuration(np.Duration))
	}
	title := "Now playing"
	if np.Paused {
		title = "Paused"
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Position", Value: position, Inline: true},
		{Name: "Up next", Value: fmt.Sprintf("%d in queue", queued), Inline: true},
	}
	if np.Requester != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Requested by",
			Value:  fmt.Sprintf("<@%s>", np.Requester),
			Inline: true,
		})
	}

	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       title,
					Description: np.Title,
					Fields:      fields,
				},
			},
		},
	}
}

// BuildLeaveConfirmResponse asks before abandoning a track that is playing.
func BuildLeaveConfirmResponse(instanceID, title string) *discordgo.InteractionResponse {
	row := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Leave",
				Style:    discordgo.DangerButton,
				CustomID: ComponentIDLeaveConfirm + ":" + instanceID,
			},
			discordgo.Button{
				Label:    "Stay",
				Style:    discordgo.SecondaryButton,
				CustomID: ComponentIDLeaveCancel + ":" + instanceID,
			},
		},
	}

	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    fmt.Sprintf("%s is still playing. Leave anyway?", title),
			Components: []discordgo.MessageComponent{row},
		},
	}
}

// BuildUpdateResponse replaces the message a component was clicked on.
func BuildUpdateResponse(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: []discordgo.MessageComponent{},
		},
	}
}
