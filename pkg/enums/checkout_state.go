package enums

import "fmt"

// CheckoutState tracks the checkout orchestrator for one actor.
type CheckoutState string

const (
	CheckoutStateIdle       CheckoutState = "idle"
	CheckoutStateValidating CheckoutState = "validating"
	CheckoutStateSyncing    CheckoutState = "syncing"
	CheckoutStateSubmitting CheckoutState = "submitting"
	CheckoutStateCleared    CheckoutState = "cleared"
	CheckoutStateFailed     CheckoutState = "failed"
)

var checkoutTransitions = map[CheckoutState][]CheckoutState{
	CheckoutStateIdle:       {CheckoutStateValidating},
	CheckoutStateValidating: {CheckoutStateSyncing, CheckoutStateFailed},
	CheckoutStateSyncing:    {CheckoutStateSubmitting, CheckoutStateFailed},
	CheckoutStateSubmitting: {CheckoutStateCleared, CheckoutStateFailed},
	CheckoutStateCleared:    {CheckoutStateValidating},
	CheckoutStateFailed:     {CheckoutStateValidating},
}

// String implements fmt.Stringer.
func (c CheckoutState) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutState.
func (c CheckoutState) IsValid() bool {
	_, ok := checkoutTransitions[c]
	return ok
}

// IsTerminal reports whether a checkout attempt has settled.
func (c CheckoutState) IsTerminal() bool {
	return c == CheckoutStateCleared || c == CheckoutStateFailed
}

// InFlight reports whether a checkout attempt is between validating and a terminal state.
func (c CheckoutState) InFlight() bool {
	switch c {
	case CheckoutStateValidating, CheckoutStateSyncing, CheckoutStateSubmitting:
		return true
	}
	return false
}

// CanTransition reports whether moving from c to next is allowed.
func (c CheckoutState) CanTransition(next CheckoutState) bool {
	for _, candidate := range checkoutTransitions[c] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseCheckoutState converts raw input into a CheckoutState.
func ParseCheckoutState(value string) (CheckoutState, error) {
	state := CheckoutState(value)
	if state.IsValid() {
		return state, nil
	}
	return "", fmt.Errorf("invalid checkout state %q", value)
}
