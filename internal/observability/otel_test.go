package observability

import "testing"

func TestParseHeaders(t *testing.T) {
	got := parseHeaders(" x-api-key = abc , broken, =nokey, trailing= ,a=b=c")
	if len(got) != 2 {
		t.Fatalf("headers: want=2 got=%d (%v)", len(got), got)
	}
	if got["x-api-key"] != "abc" {
		t.Fatalf("x-api-key: want=abc got=%q", got["x-api-key"])
	}
	if got["a"] != "b=c" {
		t.Fatalf("a: want=b=c got=%q", got["a"])
	}
	if parseHeaders("  ") != nil {
		t.Fatalf("empty: want nil")
	}
}

func TestClampRatio(t *testing.T) {
	cases := map[float64]float64{-1: 0, 0: 0, 0.25: 0.25, 1: 1, 4: 1}
	for in, want := range cases {
		if got := clampRatio(in); got != want {
			t.Fatalf("clampRatio(%v): want=%v got=%v", in, want, got)
		}
	}
}
