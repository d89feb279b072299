package utils

import (
	"reflect"
	"testing"
)

func TestIntInRange(t *testing.T) {
	cases := []struct {
		in          string
		def, lo, hi int
		want        int
	}{
		{"", 10, 1, 50, 10},
		{"x", 10, 1, 50, 10},
		{" 7 ", 10, 1, 50, 7},
		{"0", 10, 1, 50, 1},
		{"-4", 1, 1, 100, 1},
		{"500", 10, 1, 50, 50},
		{"2.5", 3, 1, 50, 3},
	}
	for _, tc := range cases {
		if got := IntInRange(tc.in, tc.def, tc.lo, tc.hi); got != tc.want {
			t.Fatalf("IntInRange(%q, %d, %d, %d) = %d; want %d", tc.in, tc.def, tc.lo, tc.hi, got, tc.want)
		}
	}
}

func TestSplitList(t *testing.T) {
	cases := map[string][]string{
		"":                nil,
		" , ,":            nil,
		"sale":            {"sale"},
		"sale, new ,sale": {"sale", "new"},
	}
	for in, want := range cases {
		if got := SplitList(in); !reflect.DeepEqual(got, want) {
			t.Fatalf("SplitList(%q) = %#v; want %#v", in, got, want)
		}
	}
}
