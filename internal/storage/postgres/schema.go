package postgres

import "fmt"

func schemaStatements(schema string) []string {
	return []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s.documents (
	id                  TEXT PRIMARY KEY,
	content_hash        TEXT NOT NULL UNIQUE,
	source_key          TEXT NOT NULL,
	filed_date          DATE NOT NULL,
	case_name           TEXT NOT NULL,
	docket_number       TEXT NOT NULL DEFAULT '',
	neutral_citation    TEXT NOT NULL DEFAULT '',
	binary_path         TEXT NOT NULL,
	mime_type           TEXT NOT NULL,
	extension           TEXT NOT NULL,
	download_url        TEXT NOT NULL,
	precedential_status TEXT NOT NULL,
	origin              TEXT NOT NULL,
	extraction_status   TEXT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL
)`, schema),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s.source_baselines (
	source_id    TEXT PRIMARY KEY,
	listing_hash TEXT NOT NULL DEFAULT '',
	updated_at   TIMESTAMPTZ NOT NULL
)`, schema),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s.crawler_errors (
	id         BIGSERIAL PRIMARY KEY,
	severity   TEXT NOT NULL,
	source_key TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`, schema),
	}
}
