package wizard

import (
	"errors"
	"testing"
)

func TestParseTapKinds(t *testing.T) {
	cases := []struct {
		key     string
		payload string
		want    Tap
	}{
		{KeyAction, "credit", Tap{Kind: TapAction, Action: ActionCredit}},
		{KeyAction, "debit", Tap{Kind: TapAction, Action: ActionDebit}},
		{KeySubject, "Орися", Tap{Kind: TapSubject, Label: "Орися"}},
		{KeyAmount, "7", Tap{Kind: TapAmount, Amount: 7}},
		{KeyFinish, "", Tap{Kind: TapFinish}},
		{KeyWipe, "", Tap{Kind: TapWipe}},
	}
	for _, tc := range cases {
		got, err := ParseTap(tc.key, tc.payload)
		if err != nil {
			t.Fatalf("ParseTap(%q, %q): %v", tc.key, tc.payload, err)
		}
		if got != tc.want {
			t.Fatalf("ParseTap(%q, %q) = %+v, want %+v", tc.key, tc.payload, got, tc.want)
		}
	}
}

func TestParseTapRejectsMalformed(t *testing.T) {
	cases := []struct {
		key     string
		payload string
	}{
		{"unknown_key", ""},
		{KeyAction, "demote"},
		{KeyAction, ""},
		{KeySubject, ""},
		{KeyAmount, "abc"},
		{KeyAmount, "0"},
		{KeyAmount, "-3"},
		{KeyAmount, ""},
	}
	for _, tc := range cases {
		_, err := ParseTap(tc.key, tc.payload)
		if err == nil {
			t.Fatalf("ParseTap(%q, %q) accepted malformed input", tc.key, tc.payload)
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("ParseTap(%q, %q) error = %v, want ErrValidation", tc.key, tc.payload, err)
		}
	}
}
