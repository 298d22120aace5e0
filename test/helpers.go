// Package test provides small helpers shared by unit tests
package test

import (
	"encoding/json"
)

// MarshallJSONToMap serializes a value to JSON, then loads it back as a generic map
func MarshallJSONToMap(v interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	err = json.Unmarshal(b, &m)
	return m, err
}

// Contains indicates whether the JSON map contains the provided key
func Contains(m map[string]interface{}, key string) bool {
	_, ok := m[key]
	return ok
}
