package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/ggs134/meeting-transcript-analyzer/pkg/db"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/logging"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/transcript"
)

// PostgresStore keeps every collection in one JSONB table keyed by
// (collection, id). doc_date holds the date or parsed createdTime.
type PostgresStore struct {
	pool   *pgxpool.Pool
	table  string
	logger logging.Logger
}

// NewPostgresStore wraps pool and applies the table's migrations.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, table string, logger logging.Logger) (*PostgresStore, error) {
	s := &PostgresStore{
		pool:   pool,
		table:  table,
		logger: logger.With(logging.F("component", "postgres_store"), logging.F("table", table)),
	}

	res, err := db.Migrate(ctx, pool, Migrations(table))
	if err != nil {
		return nil, fmt.Errorf("migrating %s: %w", table, err)
	}
	if len(res.Applied) > 0 {
		s.logger.Info("Applied schema migrations", logging.F("versions", res.Applied))
	}
	return s, nil
}

// Migrations returns the schema steps for table.
func Migrations(table string) []db.Migration {
	t := pq.QuoteIdentifier(table)
	idx := pq.QuoteIdentifier(table + "_collection_date_idx")
	return []db.Migration{
		{
			Version: table + "_001",
			Name:    "create documents table",
			SQL: `CREATE TABLE IF NOT EXISTS ` + t + ` (
				collection TEXT NOT NULL,
				id TEXT NOT NULL,
				doc JSONB NOT NULL,
				doc_date TIMESTAMPTZ,
				inserted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (collection, id)
			)`,
		},
		{
			Version: table + "_002",
			Name:    "index collection and date",
			SQL:     `CREATE INDEX IF NOT EXISTS ` + idx + ` ON ` + t + ` (collection, doc_date)`,
		},
	}
}

// SelectQuery builds the SQL for f against table.
func SelectQuery(table string, f Filter) (string, []any) {
	var sb strings.Builder
	args := []any{f.Collection}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	sb.WriteString(`SELECT id, doc FROM `)
	sb.WriteString(pq.QuoteIdentifier(table))
	sb.WriteString(` WHERE collection = $1`)

	if len(f.IDs) > 0 {
		keys := make([]string, len(f.IDs))
		for i, id := range f.IDs {
			keys[i] = IDKey(id)
		}
		sb.WriteString(` AND id = ANY(` + next(keys) + `)`)
	}

	if f.TitleContains != "" {
		p := next("%" + escapeLike(f.TitleContains) + "%")
		sb.WriteString(` AND (doc->>'title' ILIKE ` + p + ` OR doc->>'name' ILIKE ` + p + `)`)
	}

	if r := f.Date; !r.IsZero() {
		if r.Gte != nil {
			sb.WriteString(` AND doc_date >= ` + next(*r.Gte))
		}
		if r.Gt != nil {
			sb.WriteString(` AND doc_date > ` + next(*r.Gt))
		}
		if r.Lte != nil {
			sb.WriteString(` AND doc_date <= ` + next(*r.Lte))
		}
		if r.Lt != nil {
			sb.WriteString(` AND doc_date < ` + next(*r.Lt))
		}
	}

	sb.WriteString(` ORDER BY inserted_at, id`)
	if f.Limit > 0 {
		sb.WriteString(fmt.Sprintf(` LIMIT %d`, f.Limit))
	}
	return sb.String(), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *PostgresStore) Find(ctx context.Context, f Filter) ([]Document, error) {
	query, args := SelectQuery(s.table, f)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", f.Collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		doc, err := decodeJSONDocument(id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", f.Collection, err)
	}
	return docs, nil
}

// Insert writes docs in one batch. Missing ids get a UUID; conflicting ids are skipped.
func (s *PostgresStore) Insert(ctx context.Context, collection string, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	query := `INSERT INTO ` + pq.QuoteIdentifier(s.table) +
		` (collection, id, doc, doc_date) VALUES ($1, $2, $3, $4) ON CONFLICT (collection, id) DO NOTHING`

	batch := &pgx.Batch{}
	for _, doc := range docs {
		if doc[transcript.FieldID] == nil {
			doc[transcript.FieldID] = uuid.NewString()
		}
		id, payload, date, err := encodeJSONDocument(doc)
		if err != nil {
			return 0, err
		}
		batch.Queue(query, collection, id, payload, date)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range docs {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("inserting into %s: %w", collection, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection string, ids []any) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = IDKey(id)
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM `+pq.QuoteIdentifier(s.table)+` WHERE collection = $1 AND id = ANY($2)`,
		collection, keys)
	if err != nil {
		return 0, fmt.Errorf("deleting from %s: %w", collection, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) All(ctx context.Context, collection string) ([]Document, error) {
	return s.Find(ctx, Filter{Collection: collection})
}

// Pool returns the underlying connection pool.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// Close releases the pool.
func (s *PostgresStore) Close(context.Context) error {
	s.pool.Close()
	return nil
}

func encodeJSONDocument(doc Document) (string, []byte, *time.Time, error) {
	id := IDKey(doc[transcript.FieldID])
	body := cloneDocument(doc)
	body[transcript.FieldID] = id

	payload, err := json.Marshal(body)
	if err != nil {
		return "", nil, nil, fmt.Errorf("encoding document %s: %w", id, err)
	}

	var date *time.Time
	if t, ok := DocumentTime(doc); ok {
		date = &t
	}
	return id, payload, date, nil
}

// decodeJSONDocument restores the date field to a time.Time; JSON carries it as RFC 3339.
func decodeJSONDocument(id string, raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding document %s: %w", id, err)
	}
	doc[transcript.FieldID] = id
	if s, ok := doc[transcript.FieldDate].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			doc[transcript.FieldDate] = t
		}
	}
	return doc, nil
}
