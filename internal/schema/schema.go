package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// FormValues 当前表单取值, 由 default_config 播种, 随用户编辑变化
type FormValues map[string]interface{}

// Clone returns an independent copy so controllers can hand values out
// without sharing the backing map.
func (v FormValues) Clone() FormValues {
	out := make(FormValues, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// ConfigParams 服务端声明的动态表单
type ConfigParams struct {
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Icon          string        `json:"icon,omitempty"`
	Fields        []ConfigField `json:"fields"`
	DefaultConfig FormValues    `json:"default_config"`
	GroupOrder    []string      `json:"group_order"`
}

// FieldGroup 按 group_order 排好序的一组可见字段
type FieldGroup struct {
	Name   string
	Fields []ConfigField
}

// ShouldShowField applies the conditional-visibility rule. A field without
// dependencies is always visible; otherwise the referenced field's current
// value must equal (or be a member of) the declared value.
func ShouldShowField(field *ConfigField, values FormValues) bool {
	if field.Dependencies == nil {
		return true
	}
	return field.Dependencies.Matches(values)
}

// VisibleGroups interprets the schema against the current values: fields are
// grouped by their group name, groups follow group_order, and a group whose
// fields are all hidden is omitted entirely. Fields whose group does not
// appear in group_order are unreachable and dropped (see Check).
func (p *ConfigParams) VisibleGroups(values FormValues) []FieldGroup {
	if p == nil {
		return nil
	}
	groups := make([]FieldGroup, 0, len(p.GroupOrder))
	for _, name := range p.GroupOrder {
		var fields []ConfigField
		for _, f := range p.Fields {
			if f.Group != name || f.Hidden {
				continue
			}
			if !ShouldShowField(&f, values) {
				continue
			}
			fields = append(fields, f)
		}
		if len(fields) == 0 {
			continue
		}
		groups = append(groups, FieldGroup{Name: name, Fields: fields})
	}
	return groups
}

// Merge produces the full submit payload: default_config overridden by every
// key present in values. Fields the user never touched keep their default.
func (p *ConfigParams) Merge(values FormValues) FormValues {
	merged := make(FormValues, len(p.DefaultConfig)+len(values))
	for k, v := range p.DefaultConfig {
		merged[k] = v
	}
	for k, v := range values {
		merged[k] = v
	}
	return merged
}

// ValidationError 单个字段的校验失败信息
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string { return e.Message }

// Validate runs client-side validation over the currently visible fields.
// Hidden fields (by dependency or flag) are not validated: a required field
// the user cannot see must not block submission.
func (p *ConfigParams) Validate(values FormValues) []ValidationError {
	var errs []ValidationError
	for i := range p.Fields {
		f := &p.Fields[i]
		if f.Hidden || !ShouldShowField(f, values) {
			continue
		}
		value, present := values[f.Name]
		if !present {
			value = p.DefaultConfig[f.Name]
		}
		if f.Required && isEmpty(value) {
			errs = append(errs, ValidationError{
				Field:   f.Name,
				Message: fmt.Sprintf("please enter %s", f.Label),
			})
			continue
		}
		if isEmpty(value) {
			continue
		}
		switch f.Type {
		case FieldNumber, FieldRange:
			n, ok := toFloat(value)
			if !ok {
				errs = append(errs, ValidationError{Field: f.Name,
					Message: fmt.Sprintf("%s must be a number", f.Label)})
				continue
			}
			if f.Min != nil && n < *f.Min {
				errs = append(errs, ValidationError{Field: f.Name,
					Message: fmt.Sprintf("%s must be at least %v", f.Label, *f.Min)})
			}
			if f.Max != nil && n > *f.Max {
				errs = append(errs, ValidationError{Field: f.Name,
					Message: fmt.Sprintf("%s must be at most %v", f.Label, *f.Max)})
			}
		case FieldSelect, FieldRadio:
			if len(f.Options) > 0 && !optionAllowed(f.Options, value) {
				errs = append(errs, ValidationError{Field: f.Name,
					Message: fmt.Sprintf("%s has an invalid option", f.Label)})
			}
		case FieldCheckbox:
			list, ok := value.([]interface{})
			if !ok {
				if typed, okTyped := toAnySlice(value); okTyped {
					list, ok = typed, true
				}
			}
			if !ok {
				errs = append(errs, ValidationError{Field: f.Name,
					Message: fmt.Sprintf("%s must be a list", f.Label)})
				continue
			}
			for _, item := range list {
				if len(f.Options) > 0 && !optionAllowed(f.Options, item) {
					errs = append(errs, ValidationError{Field: f.Name,
						Message: fmt.Sprintf("%s has an invalid option", f.Label)})
					break
				}
			}
		}
	}
	return errs
}

// Check verifies schema invariants at registration time: unique field names,
// every referenced group present in group_order, defaults satisfying bounds
// and option sets. A field with an unknown group would never be rendered, so
// the schema author gets told instead of the form silently shrinking.
func (p *ConfigParams) Check() error {
	seen := make(map[string]bool, len(p.Fields))
	known := make(map[string]bool, len(p.GroupOrder))
	for _, g := range p.GroupOrder {
		known[g] = true
	}
	var problems []string
	for i := range p.Fields {
		f := &p.Fields[i]
		if seen[f.Name] {
			problems = append(problems, fmt.Sprintf("duplicate field name %q", f.Name))
		}
		seen[f.Name] = true
		if f.Group != "" && !known[f.Group] {
			problems = append(problems, fmt.Sprintf("field %q references group %q not in group_order", f.Name, f.Group))
		}
		def, ok := p.DefaultConfig[f.Name]
		if !ok || isEmpty(def) {
			continue
		}
		switch f.Type {
		case FieldNumber, FieldRange:
			n, numeric := toFloat(def)
			if !numeric {
				problems = append(problems, fmt.Sprintf("field %q default is not numeric", f.Name))
				break
			}
			if f.Min != nil && n < *f.Min || f.Max != nil && n > *f.Max {
				problems = append(problems, fmt.Sprintf("field %q default %v outside [min,max]", f.Name, def))
			}
		case FieldSelect, FieldRadio:
			if len(f.Options) > 0 && !optionAllowed(f.Options, def) {
				problems = append(problems, fmt.Sprintf("field %q default %v not among options", f.Name, def))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid schema %q: %s", p.Name, strings.Join(problems, "; "))
	}
	return nil
}

func optionAllowed(opts []Option, value interface{}) bool {
	for _, o := range opts {
		if scalarEqual(o.Value, value) {
			return true
		}
	}
	return false
}

// scalarEqual compares two scalar values the way a form does: numbers
// compare by value regardless of Go type (JSON decoding yields float64,
// schema literals are often int), strings and bools compare directly.
func scalarEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == b
	}
	if fa, ok := toFloat(a); ok {
		if fb, okb := toFloat(b); okb {
			return fa == fb
		}
		return false
	}
	if reflect.TypeOf(a) == reflect.TypeOf(b) {
		return reflect.DeepEqual(a, b)
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toAnySlice(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case []interface{}:
		return s, true
	case []string:
		out := make([]interface{}, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out, true
	}
	return nil, false
}

// isEmpty mirrors the renderer's notion of an unanswered control: nil or a
// blank string. Zero numbers and false switches are legitimate answers.
func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
