package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"subscan/internal/analysis"
	"subscan/internal/scanner"
)

// ReportMessage is the payload published once per finished scan.
type ReportMessage struct {
	ScanID      uuid.UUID           `json:"scan_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Stats       *scanner.Stats      `json:"stats,omitempty"`
	Report      analysis.ScanReport `json:"report"`
}

// NewReportMessage stamps a report with a fresh scan id and the current time
func NewReportMessage(scanID uuid.UUID, report analysis.ScanReport, stats *scanner.Stats) *ReportMessage {
	if scanID == uuid.Nil {
		scanID = uuid.New()
	}
	return &ReportMessage{
		ScanID:      scanID,
		GeneratedAt: time.Now().UTC(),
		Stats:       stats,
		Report:      report,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportMessageFromJSON creates a message from JSON bytes
func ReportMessageFromJSON(data []byte) (*ReportMessage, error) {
	var msg ReportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
