package accession

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// SQLResolver looks aliases up in a protein_accessions table. The table can
// live in SQLite (local mapping files) or Postgres (shared staging database).
type SQLResolver struct {
	db     *sqlx.DB
	logger *logrus.Entry
}

// Open connects to the accession table. driver is "sqlite3" or "postgres".
func Open(driver, dsn string, logger *logrus.Logger) (*SQLResolver, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to accession table (%s): %w", driver, err)
	}
	return NewSQLResolver(db, logger), nil
}

// NewSQLResolver wraps an existing connection.
func NewSQLResolver(db *sqlx.DB, logger *logrus.Logger) *SQLResolver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SQLResolver{
		db:     db,
		logger: logger.WithField("component", "accession"),
	}
}

// EnsureSchema creates the lookup table when missing.
func (r *SQLResolver) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS protein_accessions (
		alias TEXT PRIMARY KEY,
		accession TEXT NOT NULL
	)`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create protein_accessions: %w", err)
	}
	return nil
}

// Put records alias -> accession. Existing aliases keep their accession.
func (r *SQLResolver) Put(ctx context.Context, alias, accession string) error {
	query := r.db.Rebind(`INSERT INTO protein_accessions (alias, accession) VALUES (?, ?) ON CONFLICT (alias) DO NOTHING`)
	if _, err := r.db.ExecContext(ctx, query, alias, Normalize(accession)); err != nil {
		return fmt.Errorf("insert accession alias %q: %w", alias, err)
	}
	return nil
}

// Resolve implements Resolver
func (r *SQLResolver) Resolve(ctx context.Context, q Query) (string, bool, error) {
	query := r.db.Rebind(`SELECT accession FROM protein_accessions WHERE alias = ?`)

	for _, alias := range q.aliases() {
		var acc string
		err := r.db.GetContext(ctx, &acc, query, alias)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("lookup accession for %q: %w", alias, err)
		}
		r.logger.WithFields(logrus.Fields{
			"alias":     alias,
			"accession": acc,
		}).Debug("Resolved protein accession")
		return Normalize(acc), true, nil
	}
	return "", false, nil
}

// Count returns the number of aliases in the table.
func (r *SQLResolver) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM protein_accessions`); err != nil {
		return 0, fmt.Errorf("count accessions: %w", err)
	}
	return n, nil
}

// Close closes the connection.
func (r *SQLResolver) Close() error {
	return r.db.Close()
}
