package gui

import (
	"strings"
	"testing"
	"time"

	"codeberg.org/snonux/poetcard/internal/history"
)

func TestCapitalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"please enter some text", "Please enter some text"},
		{"Already", "Already"},
		{"月落", "月落"},
	}

	for _, tt := range tests {
		if got := capitalize(tt.input); got != tt.expected {
			t.Errorf("capitalize(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFormatRecord(t *testing.T) {
	rec := &history.Record{
		UserInput:    "autumn river",
		Title:        "《秋夜》",
		Content:      "月落乌啼霜满天",
		Comment:      "A night by the river.",
		ImageURL:     "/uploads/card.jpg",
		CardComposed: true,
		CreatedAt:    time.Date(2024, 10, 1, 21, 5, 0, 0, time.Local),
	}

	got := FormatRecord(rec)
	for _, want := range []string{
		"《秋夜》\n\n月落乌啼霜满天",
		"【注释】A night by the river.",
		"Input: autumn river",
		"Image (poem card): /uploads/card.jpg",
		"Created: 2024-10-01 21:05:00",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatRecord() missing %q in:\n%s", want, got)
		}
	}

	rec.Comment = ""
	rec.CardComposed = false
	got = FormatRecord(rec)
	if strings.Contains(got, "【注释】") {
		t.Error("Expected no note section without a comment")
	}
	if !strings.Contains(got, "Image (plain image)") {
		t.Errorf("Expected plain image marker in:\n%s", got)
	}
}
