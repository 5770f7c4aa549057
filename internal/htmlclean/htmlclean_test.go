package htmlclean

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMarkdown(t *testing.T) {
	c := New(0)

	out, err := c.ToMarkdown(`<h1>Go Engineer</h1><script>track()</script><p>Build <b>things</b></p><ul><li>Go</li><li>SQL</li></ul>`)
	require.NoError(t, err)

	assert.Contains(t, out, "Go Engineer")
	assert.Contains(t, out, "**things**")
	assert.Contains(t, out, "- Go")
	assert.NotContains(t, out, "<b>")
	assert.NotContains(t, out, "track()")
}

func TestToMarkdown_PlainText(t *testing.T) {
	out, err := New(0).ToMarkdown("  plain text\r\n\r\n\r\n\r\nsecond  ")
	require.NoError(t, err)
	assert.Equal(t, "plain text\n\nsecond", out)
}

func TestToMarkdown_Truncates(t *testing.T) {
	out, err := New(5).ToMarkdown("héllo world")
	require.NoError(t, err)
	assert.Equal(t, "héllo", out)
}

func TestToMarkdown_Empty(t *testing.T) {
	out, err := New(0).ToMarkdown("   ")
	require.NoError(t, err)
	assert.Empty(t, out)
}
