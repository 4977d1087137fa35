package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/rag-tuner/internal/schema"
)

// 各文件类型的默认表单值必须能直接转换为解析选项
func TestLoadOptionsAcceptSchemaDefaults(t *testing.T) {
	for _, ext := range []string{".pdf", ".docx", ".xlsx", ".md", ".txt"} {
		params := schema.LoadConfig(ext)
		opts, err := loadOptions(params.Merge(nil))
		require.NoError(t, err, "defaults for %s must load cleanly", ext)
		assert.Nil(t, opts.pages)
	}
}

func TestLoadOptionsPageFilter(t *testing.T) {
	opts, err := loadOptions(schema.FormValues{
		"loader_tool": "per_page",
		"page_range":  "2-3",
	})
	require.NoError(t, err)
	assert.True(t, opts.perPage)
	assert.Equal(t, map[int]bool{2: true, 3: true}, opts.pages)

	_, err = loadOptions(schema.FormValues{"page_range": "x-y"})
	assert.Error(t, err)
}
