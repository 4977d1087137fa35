package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() *ConfigParams {
	fields := []ConfigField{
		{Name: "mode", Label: "模式", Type: FieldSelect, Default: "a",
			Options: []Option{{Label: "A", Value: "a"}, {Label: "B", Value: "b"}, {Label: "C", Value: "c"}},
			Group:   "basic"},
		{Name: "chunk_size", Label: "分块大小", Type: FieldNumber, Default: 1000,
			Min: f64(100), Max: f64(5000), Group: "basic"},
		{Name: "overlap", Label: "重叠", Type: FieldNumber, Default: 50, Group: "basic"},
		{Name: "llm_model", Label: "模型名称", Type: FieldText, Default: "", Required: true,
			Group:        "advanced",
			Dependencies: &Dependency{Field: "mode", Value: []interface{}{"a", "b"}}},
		{Name: "notes", Label: "备注", Type: FieldTextarea, Default: "",
			Group:        "advanced",
			Dependencies: &Dependency{Field: "mode", Value: "c"}},
	}
	return &ConfigParams{
		Name:          "test",
		Fields:        fields,
		DefaultConfig: defaultsOf(fields),
		GroupOrder:    []string{"basic", "advanced"},
	}
}

func TestShouldShowFieldWithoutDependencies(t *testing.T) {
	f := &ConfigField{Name: "plain", Type: FieldText}
	assert.True(t, ShouldShowField(f, FormValues{}))
	assert.True(t, ShouldShowField(f, FormValues{"anything": 42}))
	assert.True(t, ShouldShowField(f, nil))
}

func TestShouldShowFieldListDependency(t *testing.T) {
	f := &ConfigField{
		Name:         "dep",
		Dependencies: &Dependency{Field: "mode", Value: []interface{}{"a", "b"}},
	}
	assert.True(t, ShouldShowField(f, FormValues{"mode": "a"}))
	assert.True(t, ShouldShowField(f, FormValues{"mode": "b"}))
	assert.False(t, ShouldShowField(f, FormValues{"mode": "c"}))
	assert.False(t, ShouldShowField(f, FormValues{}))
}

func TestShouldShowFieldScalarDependency(t *testing.T) {
	f := &ConfigField{
		Name:         "ocr_language",
		Dependencies: &Dependency{Field: "ocr_enabled", Value: true},
	}
	assert.True(t, ShouldShowField(f, FormValues{"ocr_enabled": true}))
	assert.False(t, ShouldShowField(f, FormValues{"ocr_enabled": false}))
}

// JSON decoding turns schema ints into float64; visibility must not care.
func TestDependencyNumericTolerance(t *testing.T) {
	f := &ConfigField{
		Name:         "dep",
		Dependencies: &Dependency{Field: "level", Value: 3},
	}
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"level": 3}`), &decoded))
	assert.True(t, ShouldShowField(f, FormValues(decoded)))
}

func TestVisibleGroupsFollowGroupOrder(t *testing.T) {
	p := testParams()
	groups := p.VisibleGroups(FormValues{"mode": "a"})
	require.Len(t, groups, 2)
	assert.Equal(t, "basic", groups[0].Name)
	assert.Equal(t, "advanced", groups[1].Name)
	require.Len(t, groups[1].Fields, 1)
	assert.Equal(t, "llm_model", groups[1].Fields[0].Name)
}

func TestVisibleGroupsDropEmptyGroup(t *testing.T) {
	p := testParams()
	// 选 c 后 advanced 组只剩 notes; 再选一个都不显示的值则整组消失
	groups := p.VisibleGroups(FormValues{"mode": "c"})
	require.Len(t, groups, 2)
	assert.Equal(t, "notes", groups[1].Fields[0].Name)

	p.Fields = p.Fields[:3] // advanced 组没有任何字段
	groups = p.VisibleGroups(FormValues{"mode": "a"})
	require.Len(t, groups, 1)
	assert.Equal(t, "basic", groups[0].Name)
}

func TestVisibleGroupsDropUnknownGroupField(t *testing.T) {
	p := testParams()
	p.Fields = append(p.Fields, ConfigField{Name: "orphan", Group: "nowhere"})
	for _, g := range p.VisibleGroups(FormValues{"mode": "a"}) {
		for _, f := range g.Fields {
			assert.NotEqual(t, "orphan", f.Name)
		}
	}
}

func TestVisibleGroupsSkipHiddenField(t *testing.T) {
	p := testParams()
	p.Fields[1].Hidden = true
	groups := p.VisibleGroups(FormValues{"mode": "a"})
	for _, f := range groups[0].Fields {
		assert.NotEqual(t, "chunk_size", f.Name)
	}
}

func TestValidateRequiredEmpty(t *testing.T) {
	p := testParams()
	errs := p.Validate(FormValues{"mode": "a", "llm_model": ""})
	require.Len(t, errs, 1)
	assert.Equal(t, "llm_model", errs[0].Field)
	assert.Contains(t, errs[0].Message, "模型名称")
}

func TestValidateRequiredHiddenByDependency(t *testing.T) {
	p := testParams()
	// mode=c 时 llm_model 不可见, 不应报必填
	errs := p.Validate(FormValues{"mode": "c", "llm_model": ""})
	assert.Empty(t, errs)
}

func TestValidateNumberBounds(t *testing.T) {
	p := testParams()
	errs := p.Validate(FormValues{"mode": "a", "llm_model": "x", "chunk_size": 50})
	require.Len(t, errs, 1)
	assert.Equal(t, "chunk_size", errs[0].Field)

	errs = p.Validate(FormValues{"mode": "a", "llm_model": "x", "chunk_size": 6000})
	require.Len(t, errs, 1)
}

func TestValidateOptionMembership(t *testing.T) {
	p := testParams()
	errs := p.Validate(FormValues{"mode": "z", "llm_model": "x"})
	require.Len(t, errs, 1)
	assert.Equal(t, "mode", errs[0].Field)
}

func TestMergeKeepsUntouchedDefaults(t *testing.T) {
	fields := []ConfigField{
		{Name: "chunk_size", Type: FieldNumber, Default: 1000},
		{Name: "overlap", Type: FieldNumber, Default: 50},
	}
	p := &ConfigParams{Fields: fields, DefaultConfig: defaultsOf(fields)}

	merged := p.Merge(FormValues{"chunk_size": 500})
	assert.Equal(t, 500, merged["chunk_size"])
	assert.Equal(t, 50, merged["overlap"])
	// 原始 default_config 不被修改
	assert.Equal(t, 1000, p.DefaultConfig["chunk_size"])
}

func TestCheckReportsProblems(t *testing.T) {
	p := testParams()
	require.NoError(t, p.Check())

	dup := testParams()
	dup.Fields = append(dup.Fields, ConfigField{Name: "mode", Group: "basic"})
	assert.Error(t, dup.Check())

	orphan := testParams()
	orphan.Fields = append(orphan.Fields, ConfigField{Name: "x", Group: "ghost"})
	assert.Error(t, orphan.Check())

	bad := testParams()
	bad.DefaultConfig["chunk_size"] = 7
	assert.Error(t, bad.Check())
}

func TestStageSchemasAreWellFormed(t *testing.T) {
	for _, p := range []*ConfigParams{
		LoadConfig(".pdf"),
		LoadConfig(".txt"),
		ChunkConfig(),
		EmbedConfig(),
		StoreConfig(),
		PreSearchConfig(),
		PostSearchConfig(),
		GenerateConfig(),
	} {
		assert.NoError(t, p.Check(), p.Name)
		assert.NotEmpty(t, p.GroupOrder, p.Name)
	}
}
