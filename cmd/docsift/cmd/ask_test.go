package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsift/docsift/internal/chat"
	"github.com/docsift/docsift/internal/search"
)

func TestAskMessages_NumbersPassagesAndAppendsQuestion(t *testing.T) {
	// Given: two retrieved chunks, one without a source name
	results := []*search.EnrichedResult{
		{Rank: 1, SourceName: "handbook.pdf", Content: "  Refunds within 30 days.  "},
		{Rank: 2, DocumentID: "doc-7", Content: "Store credit after 30 days."},
	}

	// When
	messages := askMessages("what is the refund window?", results)

	// Then: system prompt first, then one user message with the window
	require.Len(t, messages, 2)
	assert.Equal(t, chat.RoleSystem, messages[0].Role)
	assert.Equal(t, askSystemPrompt, messages[0].Content)

	require.Equal(t, chat.RoleUser, messages[1].Role)
	body := messages[1].Content
	assert.Contains(t, body, "[1] handbook.pdf\nRefunds within 30 days.")
	assert.Contains(t, body, "[2] doc-7\nStore credit after 30 days.")
	assert.Contains(t, body, "Question: what is the refund window?")
}

func TestAskCmd_RequiresAPIKey(t *testing.T) {
	// Given: no key in the environment
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")

	root := NewRootCmd()
	root.SetArgs([]string{"ask", "anything"})

	// When / Then
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}
