package render

import (
	"encoding/json"
	"fmt"
	"io"

	"subscan/internal/analysis"
)

// JSON writes the report as indented JSON. Amounts are decimal dollars.
func JSON(w io.Writer, r analysis.ScanReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
