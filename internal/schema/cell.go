package schema

import (
	"fmt"
	"strconv"
	"time"

	"github.com/harborline/shopfront/model"
)

// CellValue walks an item's nested maps along the column path and returns the
// leaf value, or nil when any segment is missing.
func CellValue(item map[string]any, col model.ColumnDefinition) any {
	var current any = item
	for _, segment := range col.Path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[segment]
		if !ok {
			return nil
		}
	}
	return current
}

// RenderCell formats a raw item value for display according to the column's
// cell kind. Unknown kinds cannot occur; the tag set is closed at schema
// conversion time.
func RenderCell(value any, kind model.CellKind) string {
	if value == nil {
		return ""
	}

	switch kind {
	case model.KindBoolean:
		if b, ok := value.(bool); ok {
			return strconv.FormatBool(b)
		}
	case model.KindInteger:
		if f, ok := value.(float64); ok {
			return strconv.FormatInt(int64(f), 10)
		}
	case model.KindNumber:
		if f, ok := value.(float64); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	case model.KindDate:
		if s, ok := value.(string); ok {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				return t.UTC().Format("2006-01-02 15:04")
			}
			return s
		}
	case model.KindString, model.KindEnum:
		if s, ok := value.(string); ok {
			return s
		}
	}
	return fmt.Sprintf("%v", value)
}
