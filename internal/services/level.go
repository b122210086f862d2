package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultLevelThresholds is the XP needed to reach each level, by index.
var DefaultLevelThresholds = []int64{0, 100, 300, 600, 1200, 2500}

// LevelTable converts XP totals to levels. It holds no mutable state, so a
// level derived once is derived identically on every later call.
type LevelTable struct {
	thresholds []int64
}

func NewLevelTable(thresholds []int64) (*LevelTable, error) {
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("level table: no thresholds")
	}
	if thresholds[0] != 0 {
		return nil, fmt.Errorf("level table: first threshold must be 0, got %d", thresholds[0])
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] <= thresholds[i-1] {
			return nil, fmt.Errorf("level table: thresholds must be strictly ascending at index %d", i)
		}
	}
	cp := append([]int64(nil), thresholds...)
	return &LevelTable{thresholds: cp}, nil
}

func DefaultLevelTable() *LevelTable {
	t, _ := NewLevelTable(DefaultLevelThresholds)
	return t
}

// ParseLevelThresholds reads a comma separated list such as "0,100,300".
func ParseLevelThresholds(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return append([]int64(nil), DefaultLevelThresholds...), nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("level thresholds: %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// LevelFor returns the largest i with xp >= T[i]. Negative XP is level 0.
func (t *LevelTable) LevelFor(xp int64) int {
	if xp <= 0 {
		return 0
	}
	// first index whose threshold exceeds xp, minus one
	i := sort.Search(len(t.thresholds), func(i int) bool { return t.thresholds[i] > xp })
	return i - 1
}

func (t *LevelTable) MaxLevel() int { return len(t.thresholds) - 1 }

// NextThreshold is the XP total needed for level+1; false at max level.
func (t *LevelTable) NextThreshold(level int) (int64, bool) {
	if level < 0 {
		level = 0
	}
	if level >= t.MaxLevel() {
		return 0, false
	}
	return t.thresholds[level+1], true
}

func (t *LevelTable) Threshold(level int) int64 {
	if level <= 0 {
		return 0
	}
	if level > t.MaxLevel() {
		level = t.MaxLevel()
	}
	return t.thresholds[level]
}
