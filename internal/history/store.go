package history

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/nerrad567/echonet-sensehat/internal/echonet"
	"github.com/nerrad567/echonet-sensehat/internal/infrastructure/database"
)

// Recent limits.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// SourceSampler marks rows written for periodic sensor samples.
const SourceSampler = "sampler"

// timeLayout is fixed-width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Event is one property exchange.
type Event struct {
	ID        int64
	Object    echonet.ObjectCode
	ESV       echonet.ESV
	EPC       byte
	EDT       []byte
	Accepted  bool
	Source    string
	CreatedAt time.Time
}

// FromRequest converts a dispatch notification into an Event. EDT is taken
// from the response for reads and from the request for writes.
func FromRequest(ev echonet.RequestEvent) Event {
	edt := ev.Request.Data
	if ev.ESV.IsRead() {
		edt = ev.Response.Data
	}
	return Event{
		Object:    ev.Object,
		ESV:       ev.ESV,
		EPC:       ev.Request.Code,
		EDT:       edt,
		Accepted:  ev.Accepted,
		Source:    ev.Source,
		CreatedAt: ev.Time,
	}
}

// Store persists events.
type Store interface {
	Record(ctx context.Context, ev Event) error

	// Recent returns the newest events first. object 0 means every object.
	Recent(ctx context.Context, object echonet.ObjectCode, limit int) ([]Event, error)

	// Prune deletes events created before olderThan and reports how many.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// SQLiteStore is the Store backed by the property_events table.
type SQLiteStore struct {
	db *database.DB
}

// NewSQLiteStore returns a store on db. The property_events migration must
// already be applied.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Record inserts ev. A zero CreatedAt is stamped with the current time.
func (s *SQLiteStore) Record(ctx context.Context, ev Event) error {
	if !ev.Object.Valid() || ev.Object.Instance() == 0 {
		return fmt.Errorf("%w: object %s", ErrInvalidEvent, ev.Object)
	}
	if ev.Source == "" {
		return fmt.Errorf("%w: empty source", ErrInvalidEvent)
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO property_events (object, esv, epc, edt, accepted, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.Object.String(),
		int(ev.ESV),
		int(ev.EPC),
		hex.EncodeToString(ev.EDT),
		ev.Accepted,
		ev.Source,
		ev.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("recording property event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first. limit <= 0 means
// DefaultLimit; anything above MaxLimit is capped.
func (s *SQLiteStore) Recent(ctx context.Context, object echonet.ObjectCode, limit int) ([]Event, error) {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	query := `SELECT id, object, esv, epc, edt, accepted, source, created_at
		FROM property_events`
	args := []any{}
	if object != 0 {
		query += ` WHERE object = ?`
		args = append(args, object.String())
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying property events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating property events: %w", err)
	}
	return events, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (Event, error) {
	var (
		ev        Event
		object    string
		esv, epc  int
		edt       string
		createdAt string
	)
	if err := row.Scan(&ev.ID, &object, &esv, &epc, &edt, &ev.Accepted, &ev.Source, &createdAt); err != nil {
		return Event{}, fmt.Errorf("scanning property event: %w", err)
	}

	code, err := echonet.ParseObjectCode(object)
	if err != nil {
		return Event{}, fmt.Errorf("property event %d: %w", ev.ID, err)
	}
	data, err := hex.DecodeString(edt)
	if err != nil {
		return Event{}, fmt.Errorf("property event %d: edt: %w", ev.ID, err)
	}
	ts, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return Event{}, fmt.Errorf("property event %d: created_at: %w", ev.ID, err)
	}

	ev.Object = code
	ev.ESV = echonet.ESV(esv)
	ev.EPC = byte(epc)
	ev.EDT = data
	ev.CreatedAt = ts
	return ev, nil
}

// Prune deletes events created before olderThan.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM property_events WHERE created_at < ?`,
		olderThan.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning property events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning property events: %w", err)
	}
	return n, nil
}
