package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"
)

var csvHeader = []string{"id", "timestamp", "full_name", "email", "username", "verdict", "message", "credential_hash"}

// CSVRecorder appends audit rows to a local CSV file. Writes hold a mutex and
// the file is opened O_APPEND, so concurrent requests cannot interleave rows.
type CSVRecorder struct {
	mu   sync.Mutex
	path string
}

func NewCSVRecorder(path string) *CSVRecorder {
	return &CSVRecorder{path: path}
}

func (r *CSVRecorder) Append(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, statErr := os.Stat(r.path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write audit header: %w", err)
		}
	}
	row := []string{
		rec.ID,
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.FullName,
		rec.Email,
		rec.Username,
		rec.Verdict,
		rec.Message,
		rec.CredentialHash,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to write audit row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush audit row: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (r *CSVRecorder) Recent(_ context.Context, limit int) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read audit file: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	rows = rows[1:] // header
	var records []Record
	for i := len(rows) - 1; i >= 0 && len(records) < limit; i-- {
		row := rows[i]
		if len(row) != len(csvHeader) {
			continue
		}
		ts, _ := time.Parse(time.RFC3339, row[1])
		records = append(records, Record{
			ID:             row[0],
			Timestamp:      ts,
			FullName:       row[2],
			Email:          row[3],
			Username:       row[4],
			Verdict:        row[5],
			Message:        row[6],
			CredentialHash: row[7],
		})
	}
	return records, nil
}
