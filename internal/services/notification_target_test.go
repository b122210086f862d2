package services

import (
	"errors"
	"testing"
)

func TestParseTarget(t *testing.T) {
	ok := []struct {
		in    string
		kind  TargetKind
		value string
		level int
	}{
		{"all", TargetAll, "", 0},
		{" ALL ", TargetAll, "", 0},
		{"division:signals", TargetDivision, "signals", 0},
		{"division:Deep-Archive", TargetDivision, "deep-archive", 0},
		{"level:0", TargetLevel, "0", 0},
		{"level:3", TargetLevel, "3", 3},
		{"user:U1", TargetUser, "U1", 0},
		{"user:7f1c2a9e-0000-4000-8000-000000000001", TargetUser, "7f1c2a9e-0000-4000-8000-000000000001", 0},
	}
	for _, tc := range ok {
		got, err := ParseTarget(tc.in)
		if err != nil {
			t.Fatalf("ParseTarget(%q): %v", tc.in, err)
		}
		if got.Kind != tc.kind || got.Value != tc.value || got.Level != tc.level {
			t.Fatalf("ParseTarget(%q): got=%+v", tc.in, got)
		}
	}

	bad := []string{"", "everyone", "level:", "level:-1", "level:x", "level:99999", "division:", "division:a b", "user:", "user:a b", "team:x"}
	for _, in := range bad {
		if _, err := ParseTarget(in); !errors.Is(err, ErrInvalidTarget) {
			t.Fatalf("ParseTarget(%q): want ErrInvalidTarget got %v", in, err)
		}
	}
}

func TestUserIDValidationMatchesUserTargets(t *testing.T) {
	for _, id := range []string{
		"U1",
		"0b7f3c2e-8d1a-4c55-9a0e-2f6f1c3b9d10",
		"ops@site.example",
		"team:alpha",
		"bad id",
		"slash/id",
		"ünïcode",
		"",
		"a123456789b123456789c123456789d123456789e123456789f123456789g1234",
	} {
		idErr := validateUserID(id)
		_, targetErr := ParseTarget("user:" + id)
		if (idErr == nil) != (targetErr == nil) {
			t.Fatalf("%q: user id valid=%v but user target valid=%v", id, idErr == nil, targetErr == nil)
		}
	}
}
