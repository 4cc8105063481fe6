package domain

import "fmt"

// Panel is the part of the page currently on screen.
type Panel int

const (
	PanelSignedOut Panel = iota
	PanelIdle
	PanelShowingPoll
	PanelShowingResults
	PanelCreatingPoll
)

func (p Panel) String() string {
	switch p {
	case PanelSignedOut:
		return "SignedOut"
	case PanelIdle:
		return "SignedIn.Idle"
	case PanelShowingPoll:
		return "SignedIn.ShowingPoll"
	case PanelShowingResults:
		return "SignedIn.ShowingResults"
	case PanelCreatingPoll:
		return "SignedIn.CreatingPoll"
	default:
		return fmt.Sprintf("Panel(%d)", int(p))
	}
}

func (p Panel) SignedIn() bool {
	return p != PanelSignedOut
}

// Event is a user action on one of the page buttons.
type Event int

const (
	EventSignIn Event = iota
	EventSignOut
	EventToggleVote
	EventShowResults
	EventOpenCreatePoll
	EventSubmitCreatePoll
	EventCancelCreatePoll
)

func (e Event) String() string {
	switch e {
	case EventSignIn:
		return "sign-in"
	case EventSignOut:
		return "sign-out"
	case EventToggleVote:
		return "toggle-vote"
	case EventShowResults:
		return "show-results"
	case EventOpenCreatePoll:
		return "open-create-poll"
	case EventSubmitCreatePoll:
		return "submit-create-poll"
	case EventCancelCreatePoll:
		return "cancel-create-poll"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

// InitialPanel is the panel shown on page load. The signed-in flag is only
// read here; it is not re-evaluated until the next load.
func InitialPanel(state VoteState) Panel {
	if !state.SignedIn() {
		return PanelSignedOut
	}
	if state.HasPoll() {
		return PanelShowingPoll
	}
	return PanelIdle
}

// Next applies e to p.
func (p Panel) Next(e Event) (Panel, error) {
	if p == PanelSignedOut {
		if e == EventSignIn {
			// The wallet redirect completes on a later page load.
			return PanelSignedOut, nil
		}
		return p, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, e, p)
	}

	switch e {
	case EventSignOut:
		return PanelSignedOut, nil
	case EventToggleVote:
		return PanelShowingPoll, nil
	case EventShowResults:
		return PanelShowingResults, nil
	case EventOpenCreatePoll:
		return PanelCreatingPoll, nil
	case EventSubmitCreatePoll, EventCancelCreatePoll:
		if p != PanelCreatingPoll {
			return p, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, e, p)
		}
		return PanelIdle, nil
	}
	return p, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, e, p)
}

// Visibility lists which page containers are shown for a panel.
type Visibility struct {
	SignedOut   bool
	SignedIn    bool
	VoteOptions bool
	Results     bool
	CreatePoll  bool
}

func (p Panel) Visibility() Visibility {
	if p == PanelSignedOut {
		return Visibility{SignedOut: true}
	}
	return Visibility{
		SignedIn:    true,
		VoteOptions: p == PanelShowingPoll,
		Results:     p == PanelShowingResults,
		CreatePoll:  p == PanelCreatingPoll,
	}
}
