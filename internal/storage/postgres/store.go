// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/opinion-crawler/internal/crawler"
)

const uniqueViolation = "23505"

var validSchemaName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	Schema          string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Store persists documents, source baselines and error records. It
// implements crawler.DocumentStore, crawler.BaselineStore and
// crawler.ErrorLog.
type Store struct {
	pool   pool
	schema string
	now    func() time.Time
}

// NewStore connects to Postgres using cfg.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewStoreWithPool(p, cfg.Schema)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewStoreWithPool(p pool, schema string) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if schema == "" {
		schema = "public"
	}
	if !validSchemaName.MatchString(schema) {
		return nil, fmt.Errorf("invalid schema name %q", schema)
	}
	return &Store{
		pool:   p,
		schema: schema,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Migrate creates the tables the crawler writes to when they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.schema) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ExistsByHash reports whether a document with the content hash is stored.
func (s *Store) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s.documents WHERE content_hash = $1)`, s.schema)
	var exists bool
	if err := s.pool.QueryRow(ctx, query, hash).Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup document hash: %w", err)
	}
	return exists, nil
}

// CreateDocument inserts doc. A unique violation on content_hash is
// reported as crawler.ErrDuplicateContent.
func (s *Store) CreateDocument(ctx context.Context, doc crawler.ArchivedDocument) (string, error) {
	if doc.ID == "" {
		return "", fmt.Errorf("document id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s.documents (
	id,
	content_hash,
	source_key,
	filed_date,
	case_name,
	docket_number,
	neutral_citation,
	binary_path,
	mime_type,
	extension,
	download_url,
	precedential_status,
	origin,
	extraction_status,
	created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
)`, s.schema)

	args := []any{
		doc.ID,
		doc.ContentHash,
		doc.SourceKey,
		doc.FiledDate,
		doc.Citation.CaseName,
		doc.Citation.DocketNumber,
		doc.Citation.NeutralCitation,
		doc.BinaryPath,
		doc.MIMEType,
		doc.Extension,
		doc.DownloadURL,
		doc.PrecedentialStatus,
		doc.Origin,
		string(doc.ExtractionStatus),
		doc.CreatedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", fmt.Errorf("%w: %s", crawler.ErrDuplicateContent, doc.ContentHash)
		}
		return "", fmt.Errorf("insert document: %w", err)
	}
	return doc.ID, nil
}

// GetOrCreateBaseline returns the baseline for key, inserting an empty row
// the first time the key is seen. The boolean reports whether the row was
// created by this call.
func (s *Store) GetOrCreateBaseline(ctx context.Context, key string) (crawler.SourceBaseline, bool, error) {
	insert := fmt.Sprintf(`
INSERT INTO %s.source_baselines (source_id, listing_hash, updated_at)
VALUES ($1, '', $2)
ON CONFLICT (source_id) DO NOTHING`, s.schema)
	tag, err := s.pool.Exec(ctx, insert, key, s.now())
	if err != nil {
		return crawler.SourceBaseline{}, false, fmt.Errorf("insert baseline: %w", err)
	}
	created := tag.RowsAffected() == 1

	query := fmt.Sprintf(`SELECT listing_hash, updated_at FROM %s.source_baselines WHERE source_id = $1`, s.schema)
	baseline := crawler.SourceBaseline{SourceID: key}
	if err := s.pool.QueryRow(ctx, query, key).Scan(&baseline.ListingHash, &baseline.UpdatedAt); err != nil {
		return crawler.SourceBaseline{}, false, fmt.Errorf("select baseline: %w", err)
	}
	return baseline, created, nil
}

// UpdateBaseline stores hash as the committed listing hash for key.
func (s *Store) UpdateBaseline(ctx context.Context, key, hash string) error {
	query := fmt.Sprintf(`
INSERT INTO %s.source_baselines (source_id, listing_hash, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (source_id) DO UPDATE SET listing_hash = EXCLUDED.listing_hash, updated_at = EXCLUDED.updated_at`, s.schema)
	if _, err := s.pool.Exec(ctx, query, key, hash, s.now()); err != nil {
		return fmt.Errorf("update baseline: %w", err)
	}
	return nil
}

// AppendError inserts rec into the error log.
func (s *Store) AppendError(ctx context.Context, rec crawler.ErrorRecord) error {
	query := fmt.Sprintf(`
INSERT INTO %s.crawler_errors (severity, source_key, message, created_at)
VALUES ($1, $2, $3, $4)`, s.schema)
	if _, err := s.pool.Exec(ctx, query, string(rec.Severity), rec.SourceKey, rec.Message, rec.Timestamp); err != nil {
		return fmt.Errorf("insert error record: %w", err)
	}
	return nil
}
