package db

import (
	"context"
	"database/sql"
	"errors"
)

// BaselineVersion marks a database that predates the version table.
const BaselineVersion = "0.6"

// SchemaInspector reads the version state of the deployment schema.
type SchemaInspector interface {
	HasVersionTable(ctx context.Context) (bool, error)
	CurrentVersion(ctx context.Context) (string, error)
}

// SQLSchema inspects a live database handle.
type SQLSchema struct {
	DB *sql.DB
}

// HasVersionTable reports whether the schema_version table exists.
func (s SQLSchema) HasVersionTable(ctx context.Context) (bool, error) {
	rows, err := s.DB.QueryContext(ctx, "SHOW TABLES LIKE 'schema_version'")
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()
	return rows.Next(), rows.Err()
}

// CurrentVersion returns the highest applied schema version. A database
// without a version table reports BaselineVersion.
func (s SQLSchema) CurrentVersion(ctx context.Context) (string, error) {
	has, err := s.HasVersionTable(ctx)
	if err != nil {
		return "", err
	}
	if !has {
		return BaselineVersion, nil
	}
	var v string
	err = s.DB.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return BaselineVersion, nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}
