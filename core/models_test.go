package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
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
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestItemIDFor_SeparatesFields(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collide
	assert.NotEqual(t, ItemIDFor("ab", "c"), ItemIDFor("a", "bc"))
	assert.Equal(t, ItemIDFor("acme", "1"), ItemKey{SourceID: "acme", ItemID: "1"}.ID())
}

func TestItem_SetLinks(t *testing.T) {
	item := &Item{}
	item.SetLinks([]string{"https://example.com"})
	assert.True(t, item.HasLinks)

	item.SetLinks(nil)
	assert.False(t, item.HasLinks)
	assert.Empty(t, item.Links)
}

func TestSourceKind_String(t *testing.T) {
	assert.Equal(t, "primary", SourceKindPrimary.String())
	assert.Equal(t, "secondary", SourceKindSecondary.String())
	assert.Equal(t, "unknown", SourceKind(0).String())
}
