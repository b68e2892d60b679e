package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"moxigen/internal/types"
)

// PostgresSource reads repo records from a readme_samples table. Pages are
// cached so a resumed run re-reading the same offsets skips the round trip.
type PostgresSource struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error

	pageCache *lru.Cache[string, []types.RepoRecord]
}

func NewPostgresSource(dsn string) (*PostgresSource, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[string, []types.RepoRecord](64)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresSource{db: db, pageCache: cache}, nil
}

func (p *PostgresSource) ensureSchema(ctx context.Context) error {
	p.schemaOnce.Do(func() {
		_, p.schemaErr = p.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS readme_samples (
    id           BIGSERIAL PRIMARY KEY,
    owner        TEXT NOT NULL,
    repo         TEXT NOT NULL,
    repo_url     TEXT NOT NULL,
    readme       TEXT NOT NULL,
    file_tree    JSONB NOT NULL DEFAULT '[]',
    project_type TEXT,
    language     TEXT,
    stars        INTEGER,
    source       TEXT
)`)
	})
	return p.schemaErr
}

func (p *PostgresSource) Read(ctx context.Context, skip, limit int) ([]types.RepoRecord, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("store: postgres schema: %w", err)
	}
	key := fmt.Sprintf("%d:%d", skip, limit)
	if page, ok := p.pageCache.Get(key); ok {
		return page, nil
	}

	rows, err := p.db.QueryContext(ctx, `
SELECT owner, repo, repo_url, readme, file_tree, project_type, language, stars, source
FROM readme_samples ORDER BY id OFFSET $1 LIMIT $2`, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("store: postgres query: %w", err)
	}
	defer rows.Close()

	var out []types.RepoRecord
	for rows.Next() {
		var (
			rec      types.RepoRecord
			treeJSON []byte
			ptype    sql.NullString
			lang     sql.NullString
			stars    sql.NullInt64
			source   sql.NullString
		)
		if err := rows.Scan(&rec.Owner, &rec.Repo, &rec.RepoURL, &rec.Readme,
			&treeJSON, &ptype, &lang, &stars, &source); err != nil {
			return nil, fmt.Errorf("store: postgres scan: %w", err)
		}
		if len(treeJSON) > 0 {
			if err := json.Unmarshal(treeJSON, &rec.FileTree); err != nil {
				return nil, fmt.Errorf("store: postgres file_tree: %w", err)
			}
		}
		rec.ProjectType = ptype.String
		rec.Language = lang.String
		if stars.Valid {
			n := int(stars.Int64)
			rec.Stars = &n
		}
		rec.Source = source.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	p.pageCache.Add(key, out)
	return out, nil
}

func (p *PostgresSource) Close() error { return p.db.Close() }
