package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"
	"github.com/rs/zerolog/log"
)

type SQLServerDB struct {
	db *sql.DB
}

var _ DB = (*SQLServerDB)(nil)

func NewSQLServerDB(dsn string, logQueries bool) (*SQLServerDB, error) {
	db, err := openAndPing("sqlserver", dsn, logQueries)
	if err != nil {
		return nil, err
	}

	log.Debug().Msg("connected to SQL Server database")
	return &SQLServerDB{db: db}, nil
}

func (s *SQLServerDB) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLServerDB) TableExists(table string) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_NAME = @p1"
	if err := s.db.QueryRow(query, table).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check table existence for %s: %w", table, err)
	}
	return count > 0, nil
}

func (s *SQLServerDB) Count(table string) (int64, error) {
	var count int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.quoteIdentifier(table))
	if err := s.db.QueryRow(countSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get row count for table %s: %w", table, err)
	}
	return count, nil
}

func (s *SQLServerDB) Columns(table string) ([]Column, error) {
	rows, err := s.db.Query(fmt.Sprintf("SELECT TOP 0 * FROM %s", s.quoteIdentifier(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to read schema of table %s: %w", table, err)
	}
	defer rows.Close()

	return columnsFromRows(rows)
}

func (s *SQLServerDB) PrimaryKey(table string) (string, error) {
	query := `SELECT TOP 1 kcu.COLUMN_NAME FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
		ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
		WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY' AND tc.TABLE_NAME = @p1
		ORDER BY kcu.ORDINAL_POSITION`

	var column string
	err := s.db.QueryRow(query, table).Scan(&column)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to infer primary key for table %s: %w", table, err)
	}
	return column, nil
}

func (s *SQLServerDB) SelectRange(table, orderBy string, offset, limit int64) ([]string, [][]any, error) {
	// OFFSET/FETCH requires an ORDER BY clause on SQL Server.
	order := "(SELECT NULL)"
	if orderBy != "" {
		order = s.quoteIdentifier(orderBy)
	}
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s OFFSET @p1 ROWS FETCH NEXT @p2 ROWS ONLY",
		s.quoteIdentifier(table), order)

	rows, err := s.db.Query(query, offset, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch rows [%d, %d) from table %s: %w", offset, offset+limit, table, err)
	}
	defer rows.Close()

	return scanAll(rows)
}

func (s *SQLServerDB) InsertBatch(table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := make([]string, len(columns))
	columnNames := make([]string, len(columns))
	for i, col := range columns {
		placeholders[i] = fmt.Sprintf("@p%d", i+1)
		columnNames[i] = s.quoteIdentifier(col)
	}

	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.quoteIdentifier(table),
		strings.Join(columnNames, ", "),
		strings.Join(placeholders, ", "))

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

func (s *SQLServerDB) CreateTable(table string, columns []Column) error {
	if len(columns) == 0 {
		return fmt.Errorf("no columns provided for table creation")
	}

	columnDefs := make([]string, len(columns))
	for i, col := range columns {
		columnDefs[i] = fmt.Sprintf("%s %s", s.quoteIdentifier(col.Name), s.mapToSQLServerType(col))
	}

	createSQL := fmt.Sprintf("IF OBJECT_ID(N'%s', 'U') IS NULL CREATE TABLE %s (%s)",
		s.objectNameLiteral(table),
		s.quoteIdentifier(table),
		strings.Join(columnDefs, ", "))
	log.Debug().Msgf("creating SQL Server table: %s", createSQL)
	if _, err := s.db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	return nil
}

func (s *SQLServerDB) DeleteAll(table string) error {
	if _, err := s.db.Exec(fmt.Sprintf("TRUNCATE TABLE %s", s.quoteIdentifier(table))); err != nil {
		return fmt.Errorf("failed to truncate table %s: %w", table, err)
	}
	return nil
}

func (s *SQLServerDB) mapToSQLServerType(column Column) string {
	typeName := strings.ToUpper(column.DatabaseType)
	if typeName == "" {
		typeName = strings.ToUpper(column.GoType)
	}

	length := int64(0)
	if column.LengthValid {
		length = column.Length
	}

	precision := int64(0)
	scale := int64(0)
	if column.PrecisionScaleValid {
		precision = column.Precision
		scale = column.Scale
	}

	switch {
	case strings.Contains(typeName, "INT"):
		return "BIGINT"
	case strings.Contains(typeName, "DOUBLE"), strings.Contains(typeName, "FLOAT"), strings.Contains(typeName, "REAL"):
		return "FLOAT"
	case strings.Contains(typeName, "DEC"), strings.Contains(typeName, "NUMERIC"), strings.Contains(typeName, "NUMBER"):
		if precision > 0 {
			if scale < 0 {
				scale = 0
			}
			return fmt.Sprintf("DECIMAL(%d,%d)", precision, scale)
		}
		return "DECIMAL(38,0)"
	case strings.Contains(typeName, "CHAR"), strings.Contains(typeName, "TEXT"), strings.Contains(typeName, "CLOB"), strings.Contains(typeName, "STRING"):
		if length > 0 && length <= 4000 {
			return fmt.Sprintf("NVARCHAR(%d)", length)
		}
		return "NVARCHAR(MAX)"
	case strings.Contains(typeName, "DATE"), strings.Contains(typeName, "TIME"):
		return "DATETIME2"
	case strings.Contains(typeName, "BLOB"), strings.Contains(typeName, "BINARY"), strings.Contains(typeName, "RAW"):
		return "VARBINARY(MAX)"
	case strings.Contains(typeName, "BOOL"), strings.Contains(typeName, "BIT"):
		return "BIT"
	default:
		return "NVARCHAR(MAX)"
	}
}

func (s *SQLServerDB) quoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (s *SQLServerDB) objectNameLiteral(name string) string {
	quoted := s.quoteIdentifier(name)
	return strings.ReplaceAll(quoted, "'", "''")
}
