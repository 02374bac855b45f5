package backend

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// FunctionRequest is the body of a function call
type FunctionRequest struct {
	Path   string                 `json:"path"`
	Args   map[string]interface{} `json:"args"`
	Format string                 `json:"format"`
}

// Result is the value returned by a successful function call
type Result struct {
	Path     string          `json:"path"`
	Value    json.RawMessage `json:"value"`
	LogLines []string        `json:"logLines,omitempty"`
}

// Get looks up a gjson path inside the returned value
func (r *Result) Get(path string) gjson.Result {
	if r == nil || len(r.Value) == 0 {
		return gjson.Result{}
	}
	if path == "" || path == "@this" {
		return gjson.ParseBytes(r.Value)
	}
	return gjson.GetBytes(r.Value, path)
}

// Points returns the numeric value at path, such as an accumulated point
// total. A bare numeric value is returned when path is empty.
func (r *Result) Points(path string) (float64, bool) {
	v := r.Get(path)
	if v.Type != gjson.Number {
		return 0, false
	}
	return v.Float(), true
}
