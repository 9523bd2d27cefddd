package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/entitymeta/internal/orm/schema"
	"github.com/conduit-lang/entitymeta/internal/orm/transaction"
)

// DefaultTable is the table documents are stored in
const DefaultTable = "metadata_documents"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Dialect selects placeholder syntax
type Dialect int

const (
	// Postgres uses $n placeholders
	Postgres Dialect = iota
	// SQLite uses ? placeholders
	SQLite
)

// DialectFor maps a database/sql driver name to its dialect
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "pgx", "postgres":
		return Postgres, nil
	case "sqlite3":
		return SQLite, nil
	default:
		return 0, &schema.ConfigurationError{Message: fmt.Sprintf("unsupported SQL driver %q (want pgx or sqlite3)", driver)}
	}
}

// SQLAdapter stores versioned metadata documents in a table and serves the latest version
type SQLAdapter struct {
	db      *sql.DB
	tx      *transaction.Manager
	dialect Dialect
	table   string
	retry   transaction.RetryConfig
	logger  *zap.Logger
}

// SQLOption configures an SQLAdapter
type SQLOption func(*SQLAdapter)

// WithTable overrides the table name
func WithTable(name string) SQLOption {
	return func(a *SQLAdapter) {
		a.table = name
	}
}

// WithLogger sets the adapter's logger
func WithLogger(logger *zap.Logger) SQLOption {
	return func(a *SQLAdapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithPublishRetries sets how often Publish retries a version conflict
func WithPublishRetries(attempts int, backoff time.Duration) SQLOption {
	return func(a *SQLAdapter) {
		a.retry.MaxRetries = attempts
		a.retry.BaseBackoff = backoff
	}
}

// NewSQLAdapter creates an adapter on db. driver is the name db was opened with.
func NewSQLAdapter(db *sql.DB, driver string, opts ...SQLOption) (*SQLAdapter, error) {
	if db == nil {
		return nil, &schema.ConfigurationError{Message: "SQL adapter requires a database"}
	}
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	a := &SQLAdapter{
		db:      db,
		tx:      transaction.NewManager(db),
		dialect: dialect,
		table:   DefaultTable,
		retry: transaction.RetryConfig{
			MaxRetries:  transaction.DefaultMaxRetries,
			BaseBackoff: transaction.DefaultBaseBackoff,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if !tableNamePattern.MatchString(a.table) {
		return nil, &schema.ConfigurationError{Message: fmt.Sprintf("invalid table name %q", a.table)}
	}
	a.retry.Retryable = func(err error) bool {
		return IsVersionConflict(err) || transaction.IsRetryableError(err)
	}
	return a, nil
}

// Table returns the table name
func (a *SQLAdapter) Table() string {
	return a.table
}

func (a *SQLAdapter) placeholder(n int) string {
	if a.dialect == SQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

// EnsureTable creates the documents table if it does not exist
func (a *SQLAdapter) EnsureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			service_name TEXT NOT NULL,
			version INTEGER NOT NULL,
			document TEXT NOT NULL,
			published_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (service_name, version)
		)
	`, a.table)

	if _, err := a.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s: %w", a.table, ConvertDBError(err))
	}
	return nil
}

// FetchMetadata implements schema.Adapter by reading the latest version
func (a *SQLAdapter) FetchMetadata(ctx context.Context, _ *schema.MetadataStore, ds *schema.DataService) (*schema.Document, error) {
	name := serviceName(ds)
	query := fmt.Sprintf(
		"SELECT version, document FROM %s WHERE service_name = %s ORDER BY version DESC LIMIT 1",
		a.table, a.placeholder(1))

	var version int
	var document string
	err := a.db.QueryRowContext(ctx, query, name).Scan(&version, &document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, documentNotFound(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata for %s: %w", name, ConvertDBError(err))
	}

	doc, err := schema.DecodeDocument([]byte(document))
	if err != nil {
		return nil, fmt.Errorf("metadata for %s version %d: %w", name, version, err)
	}
	a.logger.Debug("loaded metadata document", zap.String("service", name), zap.Int("version", version))
	return doc, nil
}

// LatestVersion returns the newest published version of serviceName, 0 when none
func (a *SQLAdapter) LatestVersion(ctx context.Context, serviceName string) (int, error) {
	name := schema.NormalizeServiceName(serviceName)
	var version int
	if err := a.db.QueryRowContext(ctx, a.maxVersionQuery(), name).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read version of %s: %w", name, ConvertDBError(err))
	}
	return version, nil
}

func (a *SQLAdapter) maxVersionQuery() string {
	return fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s WHERE service_name = %s",
		a.table, a.placeholder(1))
}

// Publish stores doc as the next version of serviceName and returns that
// version. Concurrent publishers that pick the same version are retried.
func (a *SQLAdapter) Publish(ctx context.Context, serviceName string, doc *schema.Document) (int, error) {
	name := schema.NormalizeServiceName(serviceName)
	if name == "" {
		return 0, &schema.ConfigurationError{Message: "publish requires a service name"}
	}
	if doc == nil {
		return 0, &schema.ConfigurationError{Message: "metadata document is nil"}
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("failed to encode metadata for %s: %w", name, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (service_name, version, document) VALUES (%s, %s, %s)",
		a.table, a.placeholder(1), a.placeholder(2), a.placeholder(3))

	var version int
	err = a.tx.WithRetryConfig(ctx, &a.retry, func(tx *sql.Tx) error {
		var latest int
		if err := tx.QueryRowContext(ctx, a.maxVersionQuery(), name).Scan(&latest); err != nil {
			return ConvertDBError(err)
		}
		version = latest + 1
		if _, err := tx.ExecContext(ctx, insert, name, version, string(encoded)); err != nil {
			return ConvertDBError(err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to publish metadata for %s: %w", name, err)
	}

	a.logger.Info("published metadata", zap.String("service", name), zap.Int("version", version))
	return version, nil
}
