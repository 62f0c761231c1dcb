package wizard

import (
	"fmt"
	"strconv"
)

// Action is the ledger operation an admin is preparing.
type Action int

const (
	// ActionCredit adds points to a subject.
	ActionCredit Action = iota + 1
	// ActionDebit removes points from a subject.
	ActionDebit
)

func (a Action) String() string {
	switch a {
	case ActionCredit:
		return "credit"
	case ActionDebit:
		return "debit"
	}
	return "unknown"
}

// Callback keys for the wizard's inline buttons. Every button the wizard
// emits uses one of these; anything else is not a wizard tap.
const (
	KeyAction  = "wiz_act"
	KeySubject = "wiz_usr"
	KeyAmount  = "wiz_pts"
	KeyFinish  = "wiz_fin"
	KeyWipe    = "wiz_wipe"
)

// TapKind discriminates the Tap variant.
type TapKind int

const (
	// TapAction carries a credit/debit choice.
	TapAction TapKind = iota + 1
	// TapSubject carries the picked subject label.
	TapSubject
	// TapAmount carries the picked point amount.
	TapAmount
	// TapFinish ends the session and cleans up scratch messages.
	TapFinish
	// TapWipe deletes scratch messages without ending the session.
	TapWipe
)

// Tap is a button press decoded once at the transport boundary. The state
// machine matches on Kind and never looks at raw callback strings.
type Tap struct {
	Kind   TapKind
	Action Action
	Label  string
	Amount int64
}

// ParseTap decodes a callback key/payload pair into a Tap. Unknown keys
// and malformed payloads are rejected here so handlers downstream can rely
// on well-formed input.
func ParseTap(key, payload string) (Tap, error) {
	switch key {
	case KeyAction:
		switch payload {
		case "credit":
			return Tap{Kind: TapAction, Action: ActionCredit}, nil
		case "debit":
			return Tap{Kind: TapAction, Action: ActionDebit}, nil
		}
		return Tap{}, fmt.Errorf("%w: action %q", ErrValidation, payload)
	case KeySubject:
		if payload == "" {
			return Tap{}, fmt.Errorf("%w: empty subject label", ErrValidation)
		}
		return Tap{Kind: TapSubject, Label: payload}, nil
	case KeyAmount:
		n, err := strconv.ParseInt(payload, 10, 64)
		if err != nil || n <= 0 {
			return Tap{}, fmt.Errorf("%w: amount %q", ErrValidation, payload)
		}
		return Tap{Kind: TapAmount, Amount: n}, nil
	case KeyFinish:
		return Tap{Kind: TapFinish}, nil
	case KeyWipe:
		return Tap{Kind: TapWipe}, nil
	}
	return Tap{}, fmt.Errorf("%w: callback key %q", ErrValidation, key)
}
