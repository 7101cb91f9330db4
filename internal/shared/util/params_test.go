package util

import "testing"

func TestIntParam(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{raw: "", want: 50},
		{raw: "abc", want: 50},
		{raw: "10", want: 10},
		{raw: "0", want: 1},
		{raw: "-3", want: 1},
		{raw: "500", want: 100},
		{raw: " 7 ", want: 7},
	}
	for _, tt := range tests {
		if got := IntParam(tt.raw, 50, 1, 100); got != tt.want {
			t.Fatalf("IntParam(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestBoolParam(t *testing.T) {
	if !BoolParam("TRUE") || BoolParam("1") || BoolParam("") {
		t.Fatalf("unexpected BoolParam results")
	}
}
