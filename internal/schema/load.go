package schema

// 加载阶段配置, 按文件类型区分. pdf 的字段集最全, 其余类型共用精简集.

var pdfLoadFields = []ConfigField{
	{
		Name:        "loader_tool",
		Label:       "加载工具",
		Type:        FieldSelect,
		Description: "选择用于解析PDF的工具链",
		Default:     "standard",
		Options: []Option{
			{Label: "标准解析", Value: "standard"},
			{Label: "逐页解析", Value: "per_page"},
			{Label: "纯文本", Value: "plain"},
		},
		Group: "基本设置",
	},
	{
		Name:         "extract_text",
		Label:        "提取文本",
		Type:         FieldSwitch,
		Default:      true,
		Group:        "基本设置",
		Dependencies: &Dependency{Field: "loader_tool", Value: []interface{}{"standard", "per_page"}},
	},
	{
		Name:         "page_range",
		Label:        "页码范围",
		Type:         FieldText,
		Default:      "all",
		Placeholder:  "all 或 1-5,7,9-12",
		Group:        "页面设置",
		Dependencies: &Dependency{Field: "loader_tool", Value: []interface{}{"standard", "per_page"}},
	},
	{
		Name:         "password",
		Label:        "文档密码",
		Type:         FieldText,
		Default:      nil,
		Placeholder:  "请输入PDF密码",
		Group:        "安全设置",
		Dependencies: &Dependency{Field: "loader_tool", Value: []interface{}{"standard", "per_page"}},
	},
	{
		Name:         "extract_tables",
		Label:        "提取表格",
		Type:         FieldSwitch,
		Default:      true,
		Group:        "表格设置",
		Dependencies: &Dependency{Field: "loader_tool", Value: "standard"},
	},
	{
		Name:         "merge_tables",
		Label:        "合并跨页表格",
		Type:         FieldSwitch,
		Default:      false,
		Group:        "表格设置",
		Dependencies: &Dependency{Field: "extract_tables", Value: true},
	},
	{
		Name:        "extract_images",
		Label:       "提取图片",
		Type:        FieldSwitch,
		Description: "是否提取文档中的图片",
		Default:     false,
		Group:       "基本设置",
	},
	{
		Name:        "extract_headers",
		Label:       "提取页眉",
		Type:        FieldSwitch,
		Description: "是否提取文档的页眉",
		Default:     true,
		Group:       "格式设置",
	},
	{
		Name:        "extract_footers",
		Label:       "提取页脚",
		Type:        FieldSwitch,
		Description: "是否提取文档的页脚",
		Default:     true,
		Group:       "格式设置",
	},
}

var genericLoadFields = []ConfigField{
	{
		Name:        "encoding",
		Label:       "文件编码",
		Type:        FieldSelect,
		Default:     "utf-8",
		Options:     []Option{{Label: "UTF-8", Value: "utf-8"}, {Label: "GBK", Value: "gbk"}},
		Description: "读取文件使用的字符编码",
		Group:       "基本设置",
	},
	{
		Name:        "strip_whitespace",
		Label:       "去除空白",
		Type:        FieldSwitch,
		Default:     true,
		Description: "是否去除段落首尾空白",
		Group:       "基本设置",
	},
}

// LoadConfig 返回指定文件类型的加载配置
func LoadConfig(fileType string) *ConfigParams {
	fields := genericLoadFields
	name := "Load"
	if fileType == ".pdf" {
		fields = pdfLoadFields
		name = "PDF Load"
	}
	p := &ConfigParams{
		Name:          name,
		Description:   "文档加载配置",
		Icon:          "file-load",
		Fields:        fields,
		DefaultConfig: defaultsOf(fields),
		GroupOrder:    groupOrderOf(fields),
	}
	return p
}

// defaultsOf mirrors the original schema builders: default_config is derived
// from each field's declared default.
func defaultsOf(fields []ConfigField) FormValues {
	out := make(FormValues, len(fields))
	for _, f := range fields {
		out[f.Name] = f.Default
	}
	return out
}

// groupOrderOf preserves first-appearance order of field groups.
func groupOrderOf(fields []ConfigField) []string {
	var order []string
	seen := make(map[string]bool)
	for _, f := range fields {
		if f.Group == "" || seen[f.Group] {
			continue
		}
		seen[f.Group] = true
		order = append(order, f.Group)
	}
	return order
}
