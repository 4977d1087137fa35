package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarkdownExtractsText(t *testing.T) {
	md := []byte("# Title\n\nFirst paragraph.\n\n- item one\n- item two\n")
	items, err := parseMarkdown(md)
	require.NoError(t, err)
	require.Len(t, items, 1)

	text := items[0].PageContent
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "First paragraph.")
	assert.Contains(t, text, "item two")
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "-")
}

func TestParseHTMLStripsTags(t *testing.T) {
	html := []byte("<html><body><h1>Hello</h1><p>some <b>bold</b> text</p></body></html>")
	items, err := parseHTML(html)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Hello some bold text", items[0].PageContent)
}

func TestParsePlainStripWhitespace(t *testing.T) {
	items, err := parsePlain([]byte("  hello\n"), parseOptions{stripSpace: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "hello", items[0].PageContent)

	items, err = parsePlain([]byte("   "), parseOptions{stripSpace: true})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestParseContentUnsupportedFormat(t *testing.T) {
	_, err := parseContent(context.Background(), []byte("x"), ".exe", parseOptions{})
	assert.Error(t, err)
}
