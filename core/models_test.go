package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "same content produces same ID",
			content: "fresh apples not dried",
		},
		{
			name:    "empty string",
			content: "",
		},
		{
			name:    "long content",
			content: "0101 21 00 Pure-bred breeding animals Live horses, asses, mules and hinnies",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("2202 10 00 waters containing added sugar")
	id2 := IDFromContent("2202 91 00 non-alcoholic beer")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}
