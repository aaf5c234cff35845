package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

type SQLiteDB struct {
	db *sql.DB
}

var _ DB = (*SQLiteDB)(nil)

func NewSQLiteDB(dbPath string, logQueries bool) (*SQLiteDB, error) {
	db, err := openAndPing("sqlite3", dbPath, logQueries)
	if err != nil {
		return nil, err
	}

	log.Debug().Msgf("connected to SQLite database at %s", dbPath)
	return &SQLiteDB{db: db}, nil
}

func (s *SQLiteDB) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDB) TableExists(table string) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	if err := s.db.QueryRow(query, table).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check table existence for %s: %w", table, err)
	}
	return count > 0, nil
}

func (s *SQLiteDB) Count(table string) (int64, error) {
	var count int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.quoteIdentifier(table))
	if err := s.db.QueryRow(countSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get row count for table %s: %w", table, err)
	}
	return count, nil
}

func (s *SQLiteDB) Columns(table string) ([]Column, error) {
	rows, err := s.db.Query(fmt.Sprintf("SELECT * FROM %s LIMIT 0", s.quoteIdentifier(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to read schema of table %s: %w", table, err)
	}
	defer rows.Close()

	return columnsFromRows(rows)
}

func (s *SQLiteDB) PrimaryKey(table string) (string, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", s.quoteIdentifier(table)))
	if err != nil {
		return "", fmt.Errorf("failed to infer primary key for table %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return "", fmt.Errorf("failed to scan table_info for %s: %w", table, err)
		}
		if pk == 1 {
			return name, nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("error during table_info iteration for %s: %w", table, err)
	}

	return "", nil
}

func (s *SQLiteDB) SelectRange(table, orderBy string, offset, limit int64) ([]string, [][]any, error) {
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s LIMIT ? OFFSET ?",
		s.quoteIdentifier(table), s.quoteIdentifier(orderBy))

	rows, err := s.db.Query(query, limit, offset)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch rows [%d, %d) from table %s: %w", offset, offset+limit, table, err)
	}
	defer rows.Close()

	return scanAll(rows)
}

func (s *SQLiteDB) InsertBatch(table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	columnNames := make([]string, len(columns))
	for i, col := range columns {
		columnNames[i] = s.quoteIdentifier(col)
	}

	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.quoteIdentifier(table),
		strings.Join(columnNames, ", "),
		strings.Join(questionPlaceholders(len(columns)), ", "))

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(row...); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *SQLiteDB) CreateTable(table string, columns []Column) error {
	if len(columns) == 0 {
		return fmt.Errorf("no columns provided for table creation")
	}

	columnDefs := make([]string, len(columns))
	for i, col := range columns {
		columnDefs[i] = fmt.Sprintf("%s %s", s.quoteIdentifier(col.Name), s.mapToSQLiteType(col))
	}

	createSQL := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		s.quoteIdentifier(table), strings.Join(columnDefs, ", "))
	log.Debug().Msgf("creating SQLite table: %s", createSQL)
	if _, err := s.db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	return nil
}

// DeleteAll uses DELETE FROM since SQLite has no TRUNCATE statement.
func (s *SQLiteDB) DeleteAll(table string) error {
	if _, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s", s.quoteIdentifier(table))); err != nil {
		return fmt.Errorf("failed to delete rows from table %s: %w", table, err)
	}
	return nil
}

func (s *SQLiteDB) mapToSQLiteType(column Column) string {
	typeName := strings.ToUpper(column.DatabaseType)
	if typeName == "" {
		typeName = strings.ToUpper(column.GoType)
	}

	switch {
	case strings.Contains(typeName, "INT"), strings.Contains(typeName, "BOOL"):
		return "INTEGER"
	case strings.Contains(typeName, "DOUBLE"), strings.Contains(typeName, "FLOAT"), strings.Contains(typeName, "REAL"):
		return "REAL"
	case strings.Contains(typeName, "DEC"), strings.Contains(typeName, "NUMERIC"), strings.Contains(typeName, "NUMBER"):
		return "NUMERIC"
	case strings.Contains(typeName, "BLOB"), strings.Contains(typeName, "BINARY"), strings.Contains(typeName, "RAW"):
		return "BLOB"
	default:
		// Dates are stored as TEXT in ISO format.
		return "TEXT"
	}
}

func (s *SQLiteDB) quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
