package cliout

import "encoding/json"

// PrintJSONArray returns v marshaled as a single indented JSON array/value
// (it writes nothing itself) — used
// for whole-result payloads (e.g. a SecurityReport) that don't fit the
// row-by-row Writer model.
func PrintJSONArray(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
