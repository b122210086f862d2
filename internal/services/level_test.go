package services

import "testing"

func TestLevelFor(t *testing.T) {
	lt := DefaultLevelTable()
	cases := []struct {
		xp   int64
		want int
	}{
		{-50, 0},
		{0, 0},
		{99, 0},
		{100, 1},
		{110, 1},
		{299, 1},
		{300, 2},
		{600, 3},
		{1199, 3},
		{1200, 4},
		{2500, 5},
		{1 << 40, 5},
	}
	for _, tc := range cases {
		if got := lt.LevelFor(tc.xp); got != tc.want {
			t.Fatalf("LevelFor(%d): want=%d got=%d", tc.xp, tc.want, got)
		}
	}
}

func TestLevelForMonotoneAndBounded(t *testing.T) {
	lt := DefaultLevelTable()
	prev := lt.LevelFor(0)
	for xp := int64(0); xp <= 4000; xp++ {
		got := lt.LevelFor(xp)
		if got < prev {
			t.Fatalf("LevelFor not monotone at xp=%d: %d < %d", xp, got, prev)
		}
		if got < 0 || got > lt.MaxLevel() {
			t.Fatalf("LevelFor out of range at xp=%d: %d", xp, got)
		}
		if xp < lt.Threshold(got) {
			t.Fatalf("LevelFor(%d)=%d but threshold is %d", xp, got, lt.Threshold(got))
		}
		if next, ok := lt.NextThreshold(got); ok && xp >= next {
			t.Fatalf("LevelFor(%d)=%d but next threshold %d already reached", xp, got, next)
		}
		prev = got
	}
}

func TestNewLevelTableValidation(t *testing.T) {
	bad := [][]int64{
		nil,
		{10, 20},
		{0, 100, 100},
		{0, 50, 20},
	}
	for _, th := range bad {
		if _, err := NewLevelTable(th); err == nil {
			t.Fatalf("NewLevelTable(%v): expected error", th)
		}
	}
	lt, err := NewLevelTable([]int64{0, 10})
	if err != nil {
		t.Fatalf("NewLevelTable: %v", err)
	}
	if lt.MaxLevel() != 1 {
		t.Fatalf("MaxLevel: want=1 got=%d", lt.MaxLevel())
	}
	if _, ok := lt.NextThreshold(1); ok {
		t.Fatalf("NextThreshold at max: want ok=false")
	}
}

func TestParseLevelThresholds(t *testing.T) {
	got, err := ParseLevelThresholds(" 0, 50 ,200")
	if err != nil {
		t.Fatalf("ParseLevelThresholds: %v", err)
	}
	if len(got) != 3 || got[1] != 50 || got[2] != 200 {
		t.Fatalf("ParseLevelThresholds: got=%v", got)
	}
	def, err := ParseLevelThresholds("")
	if err != nil || len(def) != len(DefaultLevelThresholds) {
		t.Fatalf("ParseLevelThresholds default: got=%v err=%v", def, err)
	}
	if _, err := ParseLevelThresholds("0,x"); err == nil {
		t.Fatalf("ParseLevelThresholds: expected error")
	}
}
