// Package source provides metadata adapters for a MetadataStore: in-memory
// documents, document files, a SQL table and a caching decorator.
package source

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/conduit-lang/entitymeta/internal/orm/schema"
)

var (
	// ErrDocumentNotFound is returned when a source holds no document for a service
	ErrDocumentNotFound = errors.New("metadata document not found")

	// ErrTableMissing is returned when the metadata table has not been created
	ErrTableMissing = errors.New("metadata table does not exist")

	// ErrVersionConflict is returned when two publishers write the same version
	ErrVersionConflict = errors.New("metadata version conflict")
)

// IsDocumentNotFound returns true if the error is ErrDocumentNotFound
func IsDocumentNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}

// IsTableMissing returns true if the error is ErrTableMissing
func IsTableMissing(err error) bool {
	return errors.Is(err, ErrTableMissing)
}

// IsVersionConflict returns true if the error is ErrVersionConflict
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

func documentNotFound(serviceName string) error {
	return fmt.Errorf("%w: %s", ErrDocumentNotFound, serviceName)
}

// ConvertDBError converts driver-specific errors to source errors
func ConvertDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrDocumentNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42P01": // undefined_table
			return fmt.Errorf("%w: %s", ErrTableMissing, pgErr.Message)
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ErrVersionConflict, pgErr.Detail)
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch {
		case liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %s", ErrVersionConflict, liteErr.Error())
		case strings.Contains(liteErr.Error(), "no such table"):
			return fmt.Errorf("%w: %s", ErrTableMissing, liteErr.Error())
		}
	}

	return err
}

// fileBase derives a file name from a service name: "api/breeze/Northwind/"
// becomes "api_breeze_Northwind"
func fileBase(serviceName string) string {
	name := strings.Trim(strings.TrimSpace(serviceName), "/")
	return strings.ReplaceAll(name, "/", "_")
}

// lastSegment returns the final path segment of a service name
func lastSegment(serviceName string) string {
	name := strings.Trim(strings.TrimSpace(serviceName), "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// serviceName returns the normalized name of ds, or "" when ds is nil
func serviceName(ds *schema.DataService) string {
	if ds == nil {
		return ""
	}
	return schema.NormalizeServiceName(ds.ServiceName)
}
