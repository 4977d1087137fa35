package client

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/feichai0017/rag-tuner/internal/models"
)

// ResultViewer groups a stage's result items by a metadata key for
// inspection, commonly "page". The selected group is local state and
// resets whenever a new item list is assigned.
type ResultViewer struct {
	key      string
	groups   map[string][]models.ResultItem
	order    []string
	selected string
}

func NewResultViewer(metadataKey string) *ResultViewer {
	if metadataKey == "" {
		metadataKey = "page"
	}
	return &ResultViewer{key: metadataKey}
}

// SetItems regroups the viewer around a new result list. The previous
// group selection is discarded and the first group becomes current.
func (rv *ResultViewer) SetItems(items []models.ResultItem) {
	rv.groups = make(map[string][]models.ResultItem)
	for _, it := range items {
		key := groupKey(it.Metadata[rv.key])
		rv.groups[key] = append(rv.groups[key], it)
	}

	rv.order = make([]string, 0, len(rv.groups))
	for k := range rv.groups {
		rv.order = append(rv.order, k)
	}
	sortGroupKeys(rv.order)

	rv.selected = ""
	if len(rv.order) > 0 {
		rv.selected = rv.order[0]
	}
}

// Groups returns the group keys, numerically ascending where numeric.
func (rv *ResultViewer) Groups() []string {
	out := make([]string, len(rv.order))
	copy(out, rv.order)
	return out
}

// Select makes a group current.
func (rv *ResultViewer) Select(group string) bool {
	if _, ok := rv.groups[group]; !ok {
		return false
	}
	rv.selected = group
	return true
}

// SelectedGroup returns the current group key, empty when no items.
func (rv *ResultViewer) SelectedGroup() string { return rv.selected }

// Current returns the items of the selected group.
func (rv *ResultViewer) Current() []models.ResultItem {
	return rv.groups[rv.selected]
}

func groupKey(v interface{}) string {
	switch n := v.(type) {
	case nil:
		return "-"
	case float64:
		if n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case string:
		return n
	default:
		return fmt.Sprintf("%v", v)
	}
}

// sortGroupKeys orders numerically when every key parses as a number,
// lexicographically otherwise.
func sortGroupKeys(keys []string) {
	numeric := true
	for _, k := range keys {
		if _, err := strconv.ParseFloat(k, 64); err != nil {
			numeric = false
			break
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if numeric {
			a, _ := strconv.ParseFloat(keys[i], 64)
			b, _ := strconv.ParseFloat(keys[j], 64)
			return a < b
		}
		return keys[i] < keys[j]
	})
}
