// Package database provides one capability implementation per supported
// engine. The engine variant is chosen once from config and held behind the
// DB interface for the duration of a run.
package database

// Column captures the metadata needed to recreate a source column on a
// destination engine with a different type system.
type Column struct {
	Name         string
	DatabaseType string
	GoType       string

	Length      int64
	LengthValid bool

	Precision           int64
	Scale               int64
	PrecisionScaleValid bool
}

// DB is the capability surface a transfer run needs from either side.
// Implementations wrap a single live connection; Close releases it.
type DB interface {
	// Close releases the underlying connection.
	Close() error

	// TableExists reports whether the named table exists.
	TableExists(table string) (bool, error)

	// Count returns the total row count of the table.
	Count(table string) (int64, error)

	// Columns returns the column metadata of the table.
	Columns(table string) ([]Column, error)

	// PrimaryKey returns the first primary-key column of the table, or ""
	// when the table has no primary key.
	PrimaryKey(table string) (string, error)

	// SelectRange fetches rows [offset, offset+limit) ordered by orderBy,
	// returning the column names alongside the row values.
	SelectRange(table, orderBy string, offset, limit int64) ([]string, [][]any, error)

	// InsertBatch writes all rows in a single transaction. Either every row
	// of the batch commits or none of them do.
	InsertBatch(table string, columns []string, rows [][]any) error

	// CreateTable creates the table with the given columns if it does not
	// already exist.
	CreateTable(table string, columns []Column) error

	// DeleteAll removes every row from the table. Irreversible.
	DeleteAll(table string) error
}
