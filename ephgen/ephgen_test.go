package main

import "testing"

func TestParseDate(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want float64
	}{
		{"2451545", 2451545},
		{"2459969.5", 2459969.5},
		{"2023-01-25", 2459969.5},
		{"2000-01-01", 2451544.5},
	} {
		got, err := parseDate(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("%s: got %v, %v want %v", tc.in, got, err, tc.want)
		}
	}
	if _, err := parseDate("Jan 25"); err == nil {
		t.Error("bad date accepted")
	}
}
