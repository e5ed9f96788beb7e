package outreach

import (
	"fmt"
	"strings"
)

// State is the orchestrator's position in a run.
type State int

const (
	StateInit State = iota
	StateLoadingLedger
	StateIterating
	StateSending
	StateSkipping
	StateThrottling
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateLoadingLedger:
		return "LOADING_LEDGER"
	case StateIterating:
		return "ITERATING"
	case StateSending:
		return "SENDING"
	case StateSkipping:
		return "SKIPPING"
	case StateThrottling:
		return "THROTTLING"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Reason explains why a run reached StateDone.
type Reason string

const (
	ReasonEndOfInput      Reason = "end_of_input"
	ReasonExhausted       Reason = "exhausted"
	ReasonValidationLimit Reason = "validation_limit"
	ReasonCanceled        Reason = "canceled"
	ReasonFailed          Reason = "failed"
)

// Mode selects where messages are delivered.
type Mode string

const (
	// ModeFull delivers to each recipient's own address.
	ModeFull Mode = "full"
	// ModeValidation redirects every message to a single test address and stops early.
	ModeValidation Mode = "validation"
)

// ParseMode normalizes a user-supplied mode. "test" and "validate" are accepted as
// aliases for validation; blank means full.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "full":
		return ModeFull, nil
	case "validation", "validate", "test":
		return ModeValidation, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want full or validation)", raw)
	}
}
