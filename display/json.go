package display

import "encoding/json"

// MarshalJSON marshals v with two-space indentation
func MarshalJSON(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
