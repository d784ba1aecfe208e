package views

import "encoding/json"

// Signals encodes the initial datastar signals of a page. Attribute escaping
// is left to templ.
func Signals(v map[string]any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
