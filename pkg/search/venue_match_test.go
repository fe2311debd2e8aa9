package search

import "testing"

func TestMatchVenue(t *testing.T) {
	tests := []struct {
		name      string
		selected  string
		candidate string
		want      bool
	}{
		{"exact match", "The Fillmore", "The Fillmore", true},
		{"case insensitive", "the fillmore", "The Fillmore", true},
		{"punctuation stripped", "9:30 Club", "930 Club", true},
		{"whitespace collapsed", "The  Anthem", "The Anthem", true},
		{"substring forward", "Fillmore", "The Fillmore Silver Spring", true},
		{"substring backward", "The Fillmore Silver Spring", "Fillmore", true},
		{"different venues", "The Anthem", "The Fillmore", false},
		{"empty selected", "", "The Fillmore", false},
		{"empty candidate", "The Fillmore", "", false},
		{"punctuation only", "!!!", "???", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchVenue(tt.selected, tt.candidate); got != tt.want {
				t.Errorf("MatchVenue(%q, %q) = %v, want %v", tt.selected, tt.candidate, got, tt.want)
			}
		})
	}
}
