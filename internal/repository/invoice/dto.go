package invoice

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	dominv "github.com/kailas-cloud/invoicedex/internal/domain/invoice"
)

// recordRow is the JSON document stored per invoice record.
type recordRow struct {
	ID             string `json:"id"`
	Issuer         string `json:"issuer"`
	Recipient      string `json:"recipient"`
	SourceFormat   string `json:"source_format"`
	InternalFormat string `json:"internal_format"`
	CreatedAt      string `json:"created_at"`
	CreatedAtTS    int64  `json:"created_at_ts"`
	Archived       string `json:"archived"`
	ArchivedAt     string `json:"archived_at,omitempty"`
	ArchivedBy     string `json:"archived_by,omitempty"`
}

func recordToRow(rec *dominv.Record) recordRow {
	row := recordRow{
		ID:             rec.ID(),
		Issuer:         rec.Issuer(),
		Recipient:      rec.Recipient(),
		SourceFormat:   rec.SourceFormat(),
		InternalFormat: rec.InternalFormat(),
		CreatedAt:      rec.CreatedAt().Format(time.RFC3339Nano),
		CreatedAtTS:    rec.CreatedAt().Unix(),
		Archived:       strconv.FormatBool(rec.Archived()),
		ArchivedBy:     rec.ArchivedBy(),
	}
	if at := rec.ArchivedAt(); at != nil {
		row.ArchivedAt = at.Format(time.RFC3339Nano)
	}
	return row
}

func marshalRecord(rec *dominv.Record) ([]byte, error) {
	data, err := json.Marshal(recordToRow(rec))
	if err != nil {
		return nil, fmt.Errorf("marshal record %s: %w", rec.ID(), err)
	}
	return data, nil
}

func recordFromJSON(raw string) (dominv.Record, error) {
	var row recordRow
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		return dominv.Record{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return recordFromRow(row)
}

func recordFromRow(row recordRow) (dominv.Record, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return dominv.Record{}, fmt.Errorf("invalid created_at: %w", err)
	}

	var archivedAt *time.Time
	if row.ArchivedAt != "" {
		at, err := time.Parse(time.RFC3339Nano, row.ArchivedAt)
		if err != nil {
			return dominv.Record{}, fmt.Errorf("invalid archived_at: %w", err)
		}
		archivedAt = &at
	}

	return dominv.Reconstruct(
		row.ID, row.Issuer, row.Recipient, row.SourceFormat, row.InternalFormat, createdAt,
		row.Archived == "true", archivedAt, row.ArchivedBy,
	), nil
}
