// Package normalize parses raw exchange payloads into typed bars and book
// snapshots (spec §4.1), and applies the spike/validity filter. It never
// touches the data store — the coordinator applies the result.
package normalize

import "encoding/json"

// envelope is the {code, msg, data} wrapper every payload arrives in,
// matching the exchange's OKX-style API shape.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}
