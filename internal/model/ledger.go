package model

import "time"

// LedgerStatus is the terminal outcome recorded for a product.
type LedgerStatus string

const (
	LedgerSuccess LedgerStatus = "success"
	LedgerPartial LedgerStatus = "partial"
	LedgerFailed  LedgerStatus = "failed"
)

// LedgerEntry is one append-only audit row. The ledger is the pipeline's
// sole idempotency record: a product with any terminal entry is excluded
// from subsequent backlogs.
type LedgerEntry struct {
	ProductID      int64        `json:"product_id"`
	RunID          string       `json:"run_id"`
	ProcessedAt    time.Time    `json:"processed_at"`
	Method         string       `json:"method"` // source name, or "exhausted"
	Status         LedgerStatus `json:"status"`
	AcceptedFields []string     `json:"accepted_fields"`
	Ingredients    string       `json:"ingredients,omitempty"`
	ServingSize    string       `json:"serving_size,omitempty"`
	Confidence     int          `json:"confidence"`
	Notes          string       `json:"notes,omitempty"`
}
