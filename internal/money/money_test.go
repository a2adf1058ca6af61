package money

import (
	"errors"
	"testing"
)

func TestParseValid(t *testing.T) {
	cases := map[string]string{
		"20":      "20.00",
		"20.5":    "20.50",
		"0.01":    "0.01",
		" 150.00": "150.00",
	}
	for raw, want := range cases {
		d, err := Parse(raw)
		if err != nil {
			t.Errorf("Parse(%q): %v", raw, err)
			continue
		}
		if got := Format(d); got != want {
			t.Errorf("Parse(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	for _, raw := range []string{"", "abc", "-5", "0", "0.00", "1.234", "10,50"} {
		if _, err := Parse(raw); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Parse(%q) = %v, want ErrInvalidAmount", raw, err)
		}
	}
}
