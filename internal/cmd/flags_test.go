package cmd

import (
	"math"
	"testing"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    [2]float64
		wantErr bool
	}{
		{name: "valid", input: "0,1000", want: [2]float64{0, 1000}},
		{name: "spaces and negatives", input: " -20037508.34 , 20037508.34", want: [2]float64{-20037508.34, 20037508.34}},
		{name: "too few values", input: "1", wantErr: true},
		{name: "too many values", input: "1,2,3", wantErr: true},
		{name: "invalid number", input: "a,2", wantErr: true},
		{name: "min equals max", input: "5,5", wantErr: true},
		{name: "reversed", input: "6,5", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRange(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseRange(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("parseRange(%q) unexpected error: %v", tt.input, err)
				return
			}
			if got != tt.want {
				t.Errorf("parseRange(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSeeds(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int64
		wantErr bool
	}{
		{name: "single", input: "7", want: []int64{7}},
		{name: "range", input: "1-4", want: []int64{1, 2, 3, 4}},
		{name: "list with range", input: "9, 1-2, 2", want: []int64{9, 1, 2}},
		{name: "negative seed", input: "-3", want: []int64{-3}},
		{name: "negative range", input: "-2--1", want: []int64{-2, -1}},
		{name: "reversed range", input: "4-1", wantErr: true},
		{name: "garbage", input: "x", wantErr: true},
		{name: "empty", input: " , ", wantErr: true},
		{name: "too many", input: "0-1000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSeeds(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseSeeds(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSeeds(%q) unexpected error: %v", tt.input, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseSeeds(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("parseSeeds(%q) = %v, want %v", tt.input, got, tt.want)
					break
				}
			}
		})
	}
}

func TestParseFloats(t *testing.T) {
	got, err := parseFloats([]string{"0", " nan", "-9999"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[0] != 0 || !math.IsNaN(got[1]) || got[2] != -9999 {
		t.Errorf("parseFloats = %v", got)
	}

	if _, err := parseFloats([]string{"zero"}); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"dem.asc":          "dem",
		"/data/dem.asc.gz": "dem",
		"relative/x.y.asc": "x.y",
		"noext":            "noext",
	}
	for in, want := range tests {
		if got := stem(in); got != want {
			t.Errorf("stem(%q) = %q, want %q", in, got, want)
		}
	}
}
