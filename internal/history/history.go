// Package history keeps the capped, newest-first log of completed
// assessments and renders it as CSV or XLSX.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/cogniscreen/internal/assessment"
	"github.com/Alijeyrad/cogniscreen/internal/prediction"
	"github.com/Alijeyrad/cogniscreen/internal/store"
	"github.com/Alijeyrad/cogniscreen/pkg/kv"
)

// DefaultLimit is the number of records kept per client.
const DefaultLimit = 50

var (
	ErrNotFound = errors.New("assessment record not found")
	ErrEmpty    = errors.New("no assessment history to export")
)

// Record is one completed assessment. Date is RFC 3339, Timestamp is
// epoch milliseconds.
type Record struct {
	ID        string              `json:"id"`
	Date      string              `json:"date"`
	Data      assessment.FormData `json:"data"`
	Result    prediction.Result   `json:"result"`
	Source    prediction.Source   `json:"source,omitempty"`
	Timestamp int64               `json:"timestamp"`
}

func (r Record) Time() time.Time { return time.UnixMilli(r.Timestamp) }

// Prepend puts rec first and trims the slice to limit.
func Prepend(records []Record, rec Record, limit int) []Record {
	out := make([]Record, 0, min(len(records)+1, limit))
	out = append(out, rec)
	for _, r := range records {
		if len(out) == limit {
			break
		}
		out = append(out, r)
	}
	return out
}

// Log persists the history of each client as a single JSON array.
type Log struct {
	kv    kv.Store
	keys  store.Keyspace
	limit int
	now   func() time.Time
}

func NewLog(s kv.Store, keys store.Keyspace, limit int) *Log {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Log{kv: s, keys: keys, limit: limit, now: time.Now}
}

func (l *Log) load(ctx context.Context, client string) ([]Record, error) {
	var records []Record
	err := kv.GetJSON(ctx, l.kv, l.keys.Key(client, store.KeyHistory), &records)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	return records, err
}

// Add records a completed assessment and returns it.
func (l *Log) Add(ctx context.Context, client string, data assessment.FormData, res prediction.Result) (Record, error) {
	records, err := l.load(ctx, client)
	if err != nil {
		return Record{}, fmt.Errorf("load history: %w", err)
	}

	now := l.now().UTC()
	rec := Record{
		ID:        uuid.NewString(),
		Date:      now.Format(time.RFC3339Nano),
		Data:      data.Clone(),
		Result:    res,
		Source:    res.Source,
		Timestamp: now.UnixMilli(),
	}

	records = Prepend(records, rec, l.limit)
	if err := kv.SetJSON(ctx, l.kv, l.keys.Key(client, store.KeyHistory), records, 0); err != nil {
		return Record{}, fmt.Errorf("save history: %w", err)
	}
	return rec, nil
}

// List returns up to limit records, newest first. limit <= 0 means all.
func (l *Log) List(ctx context.Context, client string, limit int) ([]Record, error) {
	records, err := l.load(ctx, client)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (l *Log) Get(ctx context.Context, client, id string) (Record, error) {
	records, err := l.load(ctx, client)
	if err != nil {
		return Record{}, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

func (l *Log) Clear(ctx context.Context, client string) error {
	return kv.SetJSON(ctx, l.kv, l.keys.Key(client, store.KeyHistory), []Record{}, 0)
}
