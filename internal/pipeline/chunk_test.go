package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkContentShortInput(t *testing.T) {
	chunks := chunkContent("hello world", 100, 10)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0])
}

func TestChunkContentRespectsMaxChars(t *testing.T) {
	content := strings.Repeat("word ", 200)
	chunks := chunkContent(content, 100, 20)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 100)
	}
}

func TestChunkContentOverlap(t *testing.T) {
	content := strings.Repeat("abcde ", 50)
	chunks := chunkContent(content, 60, 20)
	require.Greater(t, len(chunks), 1)

	// 相邻块共享尾部内容
	tail := chunks[0][len(chunks[0])-10:]
	assert.Contains(t, content, tail)
}

func TestChunkContentBreaksOnWhitespace(t *testing.T) {
	content := strings.Repeat("alpha beta gamma delta ", 20)
	chunks := chunkContent(content, 50, 0)
	for _, c := range chunks[:len(chunks)-1] {
		last := c[len(c)-1]
		assert.NotEqual(t, byte(' '), last)
	}
}

func TestChunkContentDegenerateParams(t *testing.T) {
	assert.Nil(t, chunkContent("anything", 0, 10))
	assert.Nil(t, chunkContent("", 100, 10))

	// overlap 不小于 maxChars 时回退到一半, 不应死循环
	chunks := chunkContent(strings.Repeat("x ", 100), 20, 30)
	assert.NotEmpty(t, chunks)
}

func TestChunkOverlapFromRatio(t *testing.T) {
	// 表单里的重叠值是 0-1 的比例, 不能按整数截断成 0
	assert.Equal(t, 50, chunkOverlap(0.1, 500))
	assert.Equal(t, 250, chunkOverlap(0.5, 500))
	assert.Equal(t, 495, chunkOverlap(0.99, 500))
	assert.Equal(t, 0, chunkOverlap(0, 500))

	// 越界取值截断到合法区间
	assert.Equal(t, 500, chunkOverlap(1.5, 500))
	assert.Equal(t, 0, chunkOverlap(-0.2, 500))
}

func TestParsePageRange(t *testing.T) {
	pages, err := parsePageRange("1-3,5")
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true, 5: true}, pages)

	pages, err = parsePageRange("")
	require.NoError(t, err)
	assert.Nil(t, pages)

	// "all" 是表单默认值, 表示不过滤
	pages, err = parsePageRange("all")
	require.NoError(t, err)
	assert.Nil(t, pages)

	pages, err = parsePageRange("All")
	require.NoError(t, err)
	assert.Nil(t, pages)

	_, err = parsePageRange("3-1")
	assert.Error(t, err)

	_, err = parsePageRange("abc")
	assert.Error(t, err)
}
