package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON writes the whole report including every usage and its facts.
func WriteJSON(w io.Writer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("encode a report as JSON: %w", err)
	}
	return nil
}

// DecodeJSON reads a report written by WriteJSON.
func DecodeJSON(r io.Reader) (*Report, error) {
	report := &Report{}
	if err := json.NewDecoder(r).Decode(report); err != nil {
		return nil, fmt.Errorf("decode a report as JSON: %w", err)
	}
	return report, nil
}
