package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type TargetKind string

const (
	TargetAll      TargetKind = "all"
	TargetDivision TargetKind = "division"
	TargetLevel    TargetKind = "level"
	TargetUser     TargetKind = "user"
)

var divisionSlugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

const maxTargetLevel = 10000

// NotificationTarget is a parsed target expression: "all",
// "division:<slug>", "level:<N>" or "user:<id>".
type NotificationTarget struct {
	Kind   TargetKind
	Value  string
	Level  int
	Source string
}

func (t NotificationTarget) String() string { return t.Source }

func ParseTarget(expr string) (NotificationTarget, error) {
	src := strings.TrimSpace(expr)
	if strings.EqualFold(src, "all") {
		return NotificationTarget{Kind: TargetAll, Source: "all"}, nil
	}
	kind, value, ok := strings.Cut(src, ":")
	if !ok {
		return NotificationTarget{}, fmt.Errorf("%w: %q", ErrInvalidTarget, expr)
	}
	value = strings.TrimSpace(value)
	switch TargetKind(strings.ToLower(strings.TrimSpace(kind))) {
	case TargetDivision:
		slug := strings.ToLower(value)
		if !divisionSlugPattern.MatchString(slug) {
			return NotificationTarget{}, fmt.Errorf("%w: bad division slug %q", ErrInvalidTarget, value)
		}
		return NotificationTarget{Kind: TargetDivision, Value: slug, Source: "division:" + slug}, nil
	case TargetLevel:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > maxTargetLevel {
			return NotificationTarget{}, fmt.Errorf("%w: bad level %q", ErrInvalidTarget, value)
		}
		return NotificationTarget{Kind: TargetLevel, Level: n, Value: value, Source: "level:" + strconv.Itoa(n)}, nil
	case TargetUser:
		if !userIDPattern.MatchString(value) {
			return NotificationTarget{}, fmt.Errorf("%w: bad user id %q", ErrInvalidTarget, value)
		}
		return NotificationTarget{Kind: TargetUser, Value: value, Source: "user:" + value}, nil
	}
	return NotificationTarget{}, fmt.Errorf("%w: unknown target kind in %q", ErrInvalidTarget, expr)
}
