package utils

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// JSONMap maps a postgres JSONB column.
type JSONMap map[string]any

func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONMap) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}

	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("JSONMap: Scan failed, expected []byte but got %T", value)
	}

	return json.Unmarshal(b, j)
}

// KeySlice returns the keys in sorted order.
func (j JSONMap) KeySlice() []string {
	res := make([]string, 0, len(j))
	for k := range j {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}
