package callbacks

import (
	"strings"
	"testing"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		in, unique, payload string
	}{
		{"yes", "", "yes"},
		{"club_Chess Club", "", "club_Chess Club"},
		{"\fmenu|3", "menu", "3"},
		{"\fmenu", "menu", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		u, p := Split(tc.in)
		if u != tc.unique || p != tc.payload {
			t.Fatalf("Split(%q) = %q,%q want %q,%q", tc.in, u, p, tc.unique, tc.payload)
		}
	}
}

func TestFits(t *testing.T) {
	if Fits("") {
		t.Fatal("empty data must not fit")
	}
	if !Fits("club_" + strings.Repeat("a", 59)) {
		t.Fatal("64 bytes must fit")
	}
	if Fits("club_" + strings.Repeat("я", 30)) {
		t.Fatal("65 bytes must not fit")
	}
}
