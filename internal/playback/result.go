package playback

import "fmt"

type JoinResult int

const (
	JoinSucceeded JoinResult = iota
	JoinSameChannel
	JoinNonVoiceChannel
	JoinInsufficientPermissions
	JoinCannotUnsuppress
	JoinFailed
)

func (r JoinResult) String() string {
	switch r {
	case JoinSucceeded:
		return "Succeeded"
	case JoinSameChannel:
		return "SameChannel"
	case JoinNonVoiceChannel:
		return "NonVoiceChannel"
	case JoinInsufficientPermissions:
		return "InsufficientPermissions"
	case JoinCannotUnsuppress:
		return "CannotUnsuppress"
	case JoinFailed:
		return "Failed"
	}
	return "Unknown"
}

type PlayResult int

const (
	PlayNowPlaying PlayResult = iota
	PlayAlreadyPlaying
	PlayResumed
	PlayQueueEmpty
	PlayNothingPaused
	PlayNotConnected
	PlayFailed
)

func (r PlayResult) String() string {
	switch r {
	case PlayNowPlaying:
		return "NowPlaying"
	case PlayAlreadyPlaying:
		return "AlreadyPlaying"
	case PlayResumed:
		return "Resumed"
	case PlayQueueEmpty:
		return "QueueEmpty"
	case PlayNothingPaused:
		return "NothingPaused"
	case PlayNotConnected:
		return "NotConnected"
	case PlayFailed:
		return "Failed"
	}
	return "Unknown"
}

type PauseResult int

const (
	PausePaused PauseResult = iota
	PauseAlreadyPaused
	PauseNothingPlaying
	PauseNotConnected
)

func (r PauseResult) String() string {
	switch r {
	case PausePaused:
		return "Paused"
	case PauseAlreadyPaused:
		return "AlreadyPaused"
	case PauseNothingPlaying:
		return "NothingPlaying"
	case PauseNotConnected:
		return "NotConnected"
	}
	return "Unknown"
}

type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateDisposed:
		return "Disposed"
	}
	return "Unknown"
}

// Message renders the result for the user. channelID is the voice channel
// that was joined.
func (r JoinResult) Message(channelID string) string {
	switch r {
	case JoinSucceeded:
		return fmt.Sprintf("Now connected to <#%s>!", channelID)
	case JoinSameChannel:
		return "We're... already in the same channel."
	case JoinNonVoiceChannel:
		return "You don't seem to be in a voice-based channel."
	case JoinInsufficientPermissions:
		return "I don't have permission to join and speak in that channel!"
	case JoinCannotUnsuppress:
		return "I managed to join, but not speak."
	}
	return "I can't join that channel!"
}

// Message renders the result for the user. title is the track now playing.
func (r PlayResult) Message(title string) string {
	switch r {
	case PlayNowPlaying:
		return fmt.Sprintf("Now playing %s!", title)
	case PlayAlreadyPlaying:
		return "Queued 1 song."
	case PlayResumed:
		return fmt.Sprintf("Resumed %s.", title)
	case PlayQueueEmpty:
		return "The queue is empty."
	case PlayNothingPaused:
		return "Nothing is paused."
	case PlayNotConnected:
		return "I'm not in a channel!"
	}
	return "Something went wrong while starting playback."
}

func (r PauseResult) Message() string {
	switch r {
	case PausePaused:
		return "Paused."
	case PauseAlreadyPaused:
		return "Already paused."
	case PauseNothingPlaying:
		return "Nothing is playing."
	}
	return "I'm not in a channel!"
}
