package schema

// 其余阶段的配置声明. 字段集与原有调参系统保持一致.

var chunkFields = []ConfigField{
	{
		Name:        "chunk_method",
		Label:       "分块方式",
		Type:        FieldSelect,
		Default:     "fixed_token",
		Options:     []Option{{Label: "固定token数", Value: "fixed_token"}, {Label: "按页分块", Value: "by_page"}},
		Description: "选择分块方式",
		Group:       "基本设置",
	},
	{
		Name:        "token_size",
		Label:       "token数",
		Type:        FieldNumber,
		Default:     500,
		Min:         f64(100),
		Max:         f64(5000),
		Step:        f64(100),
		Description: "每块的token数",
		Group:       "基本设置",
		Dependencies: &Dependency{
			Field: "chunk_method", Value: "fixed_token",
		},
	},
	{
		Name:        "overlap",
		Label:       "重叠比例",
		Type:        FieldNumber,
		Default:     0.1,
		Min:         f64(0),
		Max:         f64(1),
		Step:        f64(0.01),
		Description: "相邻分块的重叠比例",
		Group:       "基本设置",
	},
}

var embedFields = []ConfigField{
	{
		Name:    "embedding_tool",
		Label:   "嵌入工具",
		Type:    FieldSelect,
		Default: "openai",
		Options: []Option{
			{Label: "OpenAI Embedding", Value: "openai"},
			{Label: "Ollama", Value: "ollama"},
		},
		Description: "选择嵌入实现工具",
		Group:       "基本设置",
	},
	{
		Name:         "embedding_model",
		Label:        "嵌入模型",
		Type:         FieldText,
		Default:      "text-embedding-3-small",
		Description:  "嵌入模型名称",
		Group:        "基本设置",
		Dependencies: &Dependency{Field: "embedding_tool", Value: "openai"},
	},
	{
		Name:         "ollama_model",
		Label:        "Ollama模型",
		Type:         FieldText,
		Default:      "nomic-embed-text",
		Group:        "基本设置",
		Dependencies: &Dependency{Field: "embedding_tool", Value: "ollama"},
	},
	{
		Name:        "batch_size",
		Label:       "批大小",
		Type:        FieldNumber,
		Default:     16,
		Min:         f64(1),
		Max:         f64(256),
		Step:        f64(1),
		Description: "单次嵌入请求携带的分块数",
		Group:       "高级参数",
	},
}

var storeFields = []ConfigField{
	{
		Name:    "collection_prefix",
		Label:   "集合前缀",
		Type:    FieldText,
		Default: "doc",
		Group:   "基本设置",
	},
	{
		Name:    "store_goal",
		Label:   "入库目标",
		Type:    FieldCheckbox,
		Default: []interface{}{"semantic_integrity", "overlap"},
		Options: []Option{
			{Label: "保持段落/语义完整性", Value: "semantic_integrity"},
			{Label: "建立块之间的关联关系", Value: "overlap"},
			{Label: "附加元数据", Value: "meta"},
		},
		Description: "入库的目标，可多选",
		Group:       "基本设置",
	},
	{
		Name:        "rebuild",
		Label:       "重建集合",
		Type:        FieldSwitch,
		Default:     true,
		Description: "入库前先删除已有集合",
		Group:       "高级参数",
	},
}

var preSearchFields = []ConfigField{
	{
		Name:        "query",
		Label:       "查询语句",
		Type:        FieldTextarea,
		Default:     "",
		Required:    true,
		Rows:        3,
		Placeholder: "输入要检索的问题",
		Group:       "基本设置",
	},
	{
		Name:        "enable_summarization",
		Label:       "启用摘要",
		Type:        FieldSwitch,
		Default:     false,
		Description: "是否在预处理中生成摘要",
		Group:       "基本设置",
	},
	{
		Name:        "max_length",
		Label:       "最大长度",
		Type:        FieldNumber,
		Default:     512,
		Min:         f64(32),
		Max:         f64(4096),
		Description: "预处理内容的最大长度",
		Group:       "基本设置",
	},
}

var postSearchFields = []ConfigField{
	{
		Name:        "temperature",
		Label:       "温度",
		Type:        FieldRange,
		Min:         f64(0.0),
		Max:         f64(1.0),
		Step:        f64(0.1),
		Default:     0.7,
		Description: "控制生成内容的多样性",
		Group:       "基本设置",
	},
	{
		Name:        "top_k",
		Label:       "召回数量",
		Type:        FieldNumber,
		Default:     5,
		Min:         f64(1),
		Max:         f64(50),
		Step:        f64(1),
		Description: "相似检索返回的分块数",
		Group:       "基本设置",
	},
}

var searchParseFields = []ConfigField{
	{
		Name:        "score_threshold",
		Label:       "相似度阈值",
		Type:        FieldRange,
		Min:         f64(0.0),
		Max:         f64(1.0),
		Step:        f64(0.05),
		Default:     0.0,
		Description: "低于该相似度的召回结果将被过滤",
		Group:       "基本设置",
	},
	{
		Name:        "with_metadata",
		Label:       "返回元数据",
		Type:        FieldSwitch,
		Default:     true,
		Description: "结果中是否携带分块元数据",
		Group:       "基本设置",
	},
}

var generateFields = []ConfigField{
	{
		Name:        "max_tokens",
		Label:       "最大令牌数",
		Type:        FieldNumber,
		Default:     1024,
		Min:         f64(1),
		Max:         f64(8192),
		Description: "生成内容的最大长度",
		Group:       "基本设置",
	},
	{
		Name:    "model_name",
		Label:   "模型名称",
		Type:    FieldSelect,
		Default: "gpt-3.5-turbo",
		Options: []Option{
			{Label: "GPT-3.5", Value: "gpt-3.5-turbo"},
			{Label: "GPT-4", Value: "gpt-4"},
		},
		Description: "选择用于生成的模型",
		Group:       "基本设置",
	},
	{
		Name:        "prompt_template",
		Label:       "提示词模板",
		Type:        FieldTextarea,
		Default:     "",
		Rows:        4,
		Placeholder: "留空使用内置模板",
		Group:       "高级参数",
	},
	{
		Name:        "stream",
		Label:       "流式输出",
		Type:        FieldSwitch,
		Default:     false,
		Group:       "高级参数",
		Hidden:      true,
	},
}

func stageParams(name, description, icon string, fields []ConfigField) *ConfigParams {
	return &ConfigParams{
		Name:          name,
		Description:   description,
		Icon:          icon,
		Fields:        fields,
		DefaultConfig: defaultsOf(fields),
		GroupOrder:    groupOrderOf(fields),
	}
}

// ChunkConfig 分块配置
func ChunkConfig() *ConfigParams {
	return stageParams("Chunk", "分块配置", "file-chunk", chunkFields)
}

// EmbedConfig 嵌入配置
func EmbedConfig() *ConfigParams {
	return stageParams("Embedding", "嵌入配置，支持多种嵌入方式与工具", "file-embedding", embedFields)
}

// StoreConfig 向量入库配置
func StoreConfig() *ConfigParams {
	return stageParams("Store", "向量入库配置", "vec-store", storeFields)
}

// PreSearchConfig 检索预处理配置
func PreSearchConfig() *ConfigParams {
	return stageParams("预处理", "预处理配置", "pre", preSearchFields)
}

// PostSearchConfig 检索后处理配置
func PostSearchConfig() *ConfigParams {
	return stageParams("后处理", "后处理配置", "post", postSearchFields)
}

// SearchConfig 检索执行配置. 查询语句来自预处理结果, 此处不再填写
func SearchConfig() *ConfigParams {
	return stageParams("检索", "检索执行配置", "search", searchParseFields)
}

// GenerateConfig 生成配置
func GenerateConfig() *ConfigParams {
	return stageParams("生成配置", "配置生成过程的参数", "generate", generateFields)
}
