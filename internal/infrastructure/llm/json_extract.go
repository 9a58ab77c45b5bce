package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ExtractFirstJSONObject returns the first complete JSON object in text,
// tolerating code fences and prose around it. Numbers keep their literal form.
func ExtractFirstJSONObject(text string) (json.RawMessage, error) {
	b := []byte(text)
	start := bytes.IndexByte(b, '{')
	if start < 0 {
		return nil, fmt.Errorf("no json object found")
	}

	dec := json.NewDecoder(bytes.NewReader(b[start:]))
	dec.UseNumber()
	var v map[string]any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("re-marshal json: %w", err)
	}
	return out, nil
}
