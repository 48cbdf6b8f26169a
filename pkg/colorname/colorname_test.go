package colorname

import "testing"

func TestClassifyRedChannel(t *testing.T) {
	cl := Classify(255, 0, 0, 0.8)
	if cl.Family != "Red" {
		t.Fatalf("pure red classified as %q (raw %q)", cl.Family, cl.RawName)
	}
	if cl.RawName != "red" {
		t.Errorf("nearest name for (255,0,0) = %q, want red", cl.RawName)
	}
	if cl.Score != 0.8 {
		t.Errorf("score not carried through: %v", cl.Score)
	}
}

func TestClassifyFamilies(t *testing.T) {
	cases := []struct {
		r, g, b uint8
		family  string
	}{
		{0, 0, 255, "Blue"},
		{255, 215, 0, "Yellow"}, // gold
		{0, 128, 0, "Unknown"},  // green has no family
		{255, 255, 255, "Unknown"},
	}
	for _, tc := range cases {
		cl := Classify(tc.r, tc.g, tc.b, 1)
		if cl.Family != tc.family {
			t.Errorf("Classify(%d,%d,%d) family=%q (raw %q) want %q", tc.r, tc.g, tc.b, cl.Family, cl.RawName, tc.family)
		}
	}
}

func TestNameExactTableHits(t *testing.T) {
	cases := []struct {
		r, g, b uint8
		want    string
	}{
		{255, 0, 0, "red"},
		{0, 0, 255, "blue"},
		{255, 255, 0, "yellow"},
		{0, 0, 0, "black"},
	}
	for _, tc := range cases {
		if got := Name(tc.r, tc.g, tc.b); got != tc.want {
			t.Errorf("Name(%d,%d,%d)=%q want %q", tc.r, tc.g, tc.b, got, tc.want)
		}
	}
}
