// Package ledger maintains the append-only CSV audit record. The ledger is
// read fully at startup to reconstruct the set of already-processed product
// IDs, and is the pipeline's only idempotency mechanism.
package ledger

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pantry-labs/enrich-cli/internal/model"
)

var header = []string{
	"product_id", "run_id", "processed_date", "method", "status",
	"accepted_fields", "ingredients", "serving_size", "confidence", "notes",
}

// Ledger appends audit rows to a CSV file. Rows are never rewritten in
// place. The runner is single-threaded, so there is exactly one writer.
type Ledger struct {
	path      string
	file      *os.File
	w         *csv.Writer
	processed map[int64]bool
}

// Open reads the full ledger (creating it with a header if absent) and
// positions the writer for appends.
func Open(path string) (*Ledger, error) {
	processed, err := readProcessed(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: open %s", path)
	}

	l := &Ledger{
		path:      path,
		file:      f,
		w:         csv.NewWriter(f),
		processed: processed,
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, eris.Wrap(err, "ledger: stat")
	}
	if info.Size() == 0 {
		if err := l.w.Write(header); err != nil {
			f.Close()
			return nil, eris.Wrap(err, "ledger: write header")
		}
		l.w.Flush()
		if err := l.w.Error(); err != nil {
			f.Close()
			return nil, eris.Wrap(err, "ledger: flush header")
		}
	}

	return l, nil
}

func readProcessed(path string) (map[int64]bool, error) {
	processed := make(map[int64]bool)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return processed, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: read %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate rows from older header versions
	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "ledger: parse csv")
	}

	for i, rec := range records {
		if i == 0 || len(rec) == 0 {
			continue // header
		}
		id, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			continue
		}
		processed[id] = true
	}
	return processed, nil
}

// Processed reports whether the product already has a terminal entry.
func (l *Ledger) Processed(id int64) bool {
	return l.processed[id]
}

// ProcessedCount returns the number of distinct ledgered product IDs.
func (l *Ledger) ProcessedCount() int {
	return len(l.processed)
}

// ProcessedIDs returns every ledgered product ID, for backlog exclusion.
func (l *Ledger) ProcessedIDs() []int64 {
	ids := make([]int64, 0, len(l.processed))
	for id := range l.processed {
		ids = append(ids, id)
	}
	return ids
}

// Append writes one entry and flushes it to disk immediately so a crashed
// run never loses track of an attempt.
func (l *Ledger) Append(e model.LedgerEntry) error {
	rec := []string{
		strconv.FormatInt(e.ProductID, 10),
		e.RunID,
		e.ProcessedAt.UTC().Format(time.RFC3339),
		e.Method,
		string(e.Status),
		strings.Join(e.AcceptedFields, ";"),
		e.Ingredients,
		e.ServingSize,
		strconv.Itoa(e.Confidence),
		e.Notes,
	}
	if err := l.w.Write(rec); err != nil {
		return eris.Wrapf(err, "ledger: append product %d", e.ProductID)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return eris.Wrapf(err, "ledger: flush product %d", e.ProductID)
	}
	l.processed[e.ProductID] = true
	return nil
}

// Close flushes and closes the underlying file.
func (l *Ledger) Close() error {
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.file.Close()
		return eris.Wrap(err, "ledger: flush")
	}
	return l.file.Close()
}

// Entries reads every row back as structured entries, for the status report.
func Entries(path string) ([]model.LedgerEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "ledger: parse csv")
	}

	var entries []model.LedgerEntry
	for i, rec := range records {
		if i == 0 || len(rec) < 10 {
			continue
		}
		id, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			continue
		}
		processedAt, _ := time.Parse(time.RFC3339, rec[2])
		confidence, _ := strconv.Atoi(rec[8])

		var accepted []string
		if rec[5] != "" {
			accepted = strings.Split(rec[5], ";")
		}

		entries = append(entries, model.LedgerEntry{
			ProductID:      id,
			RunID:          rec[1],
			ProcessedAt:    processedAt,
			Method:         rec[3],
			Status:         model.LedgerStatus(rec[4]),
			AcceptedFields: accepted,
			Ingredients:    rec[6],
			ServingSize:    rec[7],
			Confidence:     confidence,
			Notes:          rec[9],
		})
	}
	return entries, nil
}
