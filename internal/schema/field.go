package schema

// FieldType 表单控件类型
type FieldType string

const (
	FieldSwitch   FieldType = "switch"
	FieldSelect   FieldType = "select"
	FieldRadio    FieldType = "radio"
	FieldNumber   FieldType = "number"
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldRange    FieldType = "range"
	FieldCheckbox FieldType = "checkbox"
)

// KnownType reports whether t is one of the declared field types.
// Unknown types fall back to free text on the rendering side.
func KnownType(t FieldType) bool {
	switch t {
	case FieldSwitch, FieldSelect, FieldRadio, FieldNumber,
		FieldText, FieldTextarea, FieldRange, FieldCheckbox:
		return true
	}
	return false
}

// Option 枚举选项 (select / radio / checkbox)
type Option struct {
	Label       string      `json:"label"`
	Value       interface{} `json:"value"`
	Description string      `json:"description,omitempty"`
}

// Dependency 条件显示规则: 仅当 Field 的当前值等于 Value (或属于 Value 列表)
// 时该字段可见
type Dependency struct {
	Field string      `json:"field"`
	Value interface{} `json:"value"`
}

// Matches evaluates the rule against the current form values.
func (d *Dependency) Matches(values FormValues) bool {
	current := values[d.Field]
	if list, ok := d.Value.([]interface{}); ok {
		for _, v := range list {
			if scalarEqual(current, v) {
				return true
			}
		}
		return false
	}
	return scalarEqual(current, d.Value)
}

// ConfigField 一个动态表单控件的声明
type ConfigField struct {
	Name         string      `json:"name"`
	Label        string      `json:"label"`
	Type         FieldType   `json:"type"`
	Description  string      `json:"description,omitempty"`
	Default      interface{} `json:"default"`
	Required     bool        `json:"required,omitempty"`
	Options      []Option    `json:"options,omitempty"`
	Min          *float64    `json:"min,omitempty"`
	Max          *float64    `json:"max,omitempty"`
	Step         *float64    `json:"step,omitempty"`
	Placeholder  string      `json:"placeholder,omitempty"`
	Rows         int         `json:"rows,omitempty"`
	Disabled     bool        `json:"disabled,omitempty"`
	Hidden       bool        `json:"hidden,omitempty"`
	Group        string      `json:"group,omitempty"`
	Dependencies *Dependency `json:"dependencies,omitempty"`
}

// f64 is a shorthand for optional numeric bounds in schema literals.
func f64(v float64) *float64 { return &v }
