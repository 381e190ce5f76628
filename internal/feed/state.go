package feed

import "fmt"

// Phase is the loading phase of the feed.
type Phase int

const (
	PhaseIdle    Phase = iota // no fetch attempted yet
	PhaseLoading              // a fetch is in flight
	PhaseLoaded               // the last fetch succeeded
	PhaseError                // the last fetch failed; Message says why
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ViewState drives which screen variant is shown.
type ViewState struct {
	Phase   Phase
	Message string // set only for PhaseError
}

func Idle() ViewState    { return ViewState{Phase: PhaseIdle} }
func Loading() ViewState { return ViewState{Phase: PhaseLoading} }
func Loaded() ViewState  { return ViewState{Phase: PhaseLoaded} }

// Failed returns an error state carrying a user-facing message.
func Failed(message string) ViewState {
	return ViewState{Phase: PhaseError, Message: message}
}

func (s ViewState) String() string {
	if s.Phase == PhaseError {
		return fmt.Sprintf("error(%s)", s.Message)
	}
	return s.Phase.String()
}
