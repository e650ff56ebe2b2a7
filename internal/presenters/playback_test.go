package presenters_test

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"

	"github.com/glizzus/jukebox/internal/playback"
	"github.com/glizzus/jukebox/internal/presenters"
)

func TestBuildNowPlayingResponse(t *testing.T) {
	tests := []struct {
		name    string
		np      playback.NowPlaying
		playing bool
		queued  int
		want    *discordgo.InteractionResponse
	}{
		{
			name: "nothing playing",
			want: presenters.MessageResponse("Nothing is playing."),
		},
		{
			name: "timed track",
			np: playback.NowPlaying{
				Title:     "Take On Me (A-ha)",
				Requester: "42",
				Duration:  225 * time.Second,
				Remaining: 100 * time.Second,
			},
			playing: true,
			queued:  2,
			want: &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Embeds: []*discordgo.MessageEmbed{
						{
							Title:       "Now playing",
							Description: "Take On Me (A-ha)",
							Fields: []*discordgo.MessageEmbedField{
								{Name: "Position", Value: "2:05 / 3:45", Inline: true},
								{Name: "Up next", Value: "2 in queue", Inline: true},
								{Name: "Requested by", Value: "<@42>", Inline: true},
							},
						},
					},
				},
			},
		},
		{
			name:    "paused live stream",
			np:      playback.NowPlaying{Title: "Radio", Paused: true},
			playing: true,
			want: &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Embeds: []*discordgo.MessageEmbed{
						{
							Title:       "Paused",
							Description: "Radio",
							Fields: []*discordgo.MessageEmbedField{
								{Name: "Position", Value: "live", Inline: true},
								{Name: "Up next", Value: "0 in queue", Inline: true},
							},
						},
					},
				},
			},
		},
		{
			name: "long track",
			np: playback.NowPlaying{
				Title:     "Mix",
				Duration:  2*time.Hour + 5*time.Second,
				Remaining: 2 * time.Hour,
			},
			playing: true,
			want: &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Embeds: []*discordgo.MessageEmbed{
						{
							Title:       "Now playing",
							Description: "Mix",
							Fields: []*discordgo.MessageEmbedField{
								{Name: "Position", Value: "0:05 / 2:00:05", Inline: true},
								{Name: "Up next", Value: "0 in queue", Inline: true},
							},
						},
					},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := presenters.BuildNowPlayingResponse(tt.np, tt.playing, tt.queued)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("BuildNowPlayingResponse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildLeaveConfirmResponse(t *testing.T) {
	got := presenters.BuildLeaveConfirmResponse("instance-1", "Wham!")
	want := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Wham! is still playing. Leave anyway?",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Label:    "Leave",
							Style:    discordgo.DangerButton,
							CustomID: "leave_confirm:instance-1",
						},
						discordgo.Button{
							Label:    "Stay",
							Style:    discordgo.SecondaryButton,
							CustomID: "leave_cancel:instance-1",
						},
					},
				},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildLeaveConfirmResponse() mismatch (-want +got):\n%s", diff)
	}
}

func TestResultResponses(t *testing.T) {
	tests := []struct {
		name string
		got  *discordgo.InteractionResponse
		want string
	}{
		{"joined", presenters.BuildJoinResponse(playback.JoinSucceeded, "123"), "Now connected to <#123>!"},
		{"same channel", presenters.BuildJoinResponse(playback.JoinSameChannel, "123"), "We're... already in the same channel."},
		{"now playing", presenters.BuildPlayResponse(playback.PlayNowPlaying, "Wham!"), "Now playing Wham!!"},
		{"queued", presenters.BuildPlayResponse(playback.PlayAlreadyPlaying, "Wham!"), "Queued 1 song."},
		{"not connected", presenters.BuildPlayResponse(playback.PlayNotConnected, ""), "I'm not in a channel!"},
		{"paused", presenters.BuildPauseResponse(playback.PausePaused), "Paused."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(presenters.MessageResponse(tt.want), tt.got); diff != "" {
				t.Errorf("response mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
