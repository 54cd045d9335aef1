// internal/llmutil/parser_test.go
package llmutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	Action string `json:"action"`
	URL    string `json:"url,omitempty"`
}

func TestParseJSONArray(t *testing.T) {
	t.Parallel()

	t.Run("bare array", func(t *testing.T) {
		items, err := ParseJSONArray[step](`[{"action":"NAVIGATE","url":"https://a.example"}]`)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "NAVIGATE", items[0].Action)
	})

	t.Run("fenced array", func(t *testing.T) {
		items, err := ParseJSONArray[step]("```json\n[{\"action\":\"SUMMARY\"}]\n```")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "SUMMARY", items[0].Action)
	})

	t.Run("array buried in prose", func(t *testing.T) {
		items, err := ParseJSONArray[step](`Sure! Here is the plan: [{"action":"SCROLL"}] Hope that helps.`)
		require.NoError(t, err)
		require.Len(t, items, 1)
	})

	t.Run("non-JSON reply errors", func(t *testing.T) {
		_, err := ParseJSONArray[step]("I cannot help with that.")
		assert.Error(t, err)
	})
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"a":1}`, ExtractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `[1,2]`, ExtractJSON("the answer is [1,2] as requested"))
	assert.Equal(t, `[]`, ExtractJSON("  []  "))
}
