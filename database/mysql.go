package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
)

type MySQLDB struct {
	db *sql.DB
}

var _ DB = (*MySQLDB)(nil)

func NewMySQLDB(dsn string, logQueries bool) (*MySQLDB, error) {
	db, err := openAndPing("mysql", dsn, logQueries)
	if err != nil {
		return nil, err
	}

	log.Debug().Msg("connected to MySQL database")
	return &MySQLDB{db: db}, nil
}

func (m *MySQLDB) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

func (m *MySQLDB) TableExists(table string) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
	if err := m.db.QueryRow(query, table).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check table existence for %s: %w", table, err)
	}
	return count > 0, nil
}

func (m *MySQLDB) Count(table string) (int64, error) {
	var count int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s", m.quoteIdentifier(table))
	if err := m.db.QueryRow(countSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get row count for table %s: %w", table, err)
	}
	return count, nil
}

func (m *MySQLDB) Columns(table string) ([]Column, error) {
	rows, err := m.db.Query(fmt.Sprintf("SELECT * FROM %s LIMIT 0", m.quoteIdentifier(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to read schema of table %s: %w", table, err)
	}
	defer rows.Close()

	return columnsFromRows(rows)
}

func (m *MySQLDB) PrimaryKey(table string) (string, error) {
	query := `SELECT column_name FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE() AND table_name = ? AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position LIMIT 1`

	var column string
	err := m.db.QueryRow(query, table).Scan(&column)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to infer primary key for table %s: %w", table, err)
	}
	return column, nil
}

func (m *MySQLDB) SelectRange(table, orderBy string, offset, limit int64) ([]string, [][]any, error) {
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s LIMIT ? OFFSET ?",
		m.quoteIdentifier(table), m.quoteIdentifier(orderBy))

	rows, err := m.db.Query(query, limit, offset)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch rows [%d, %d) from table %s: %w", offset, offset+limit, table, err)
	}
	defer rows.Close()

	return scanAll(rows)
}

func (m *MySQLDB) InsertBatch(table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	columnNames := make([]string, len(columns))
	for i, col := range columns {
		columnNames[i] = m.quoteIdentifier(col)
	}

	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		m.quoteIdentifier(table),
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

func (m *MySQLDB) CreateTable(table string, columns []Column) error {
	if len(columns) == 0 {
		return fmt.Errorf("no columns provided for table creation")
	}

	columnDefs := make([]string, len(columns))
	for i, col := range columns {
		columnDefs[i] = fmt.Sprintf("%s %s", m.quoteIdentifier(col.Name), m.mapToMySQLType(col))
	}

	createSQL := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		m.quoteIdentifier(table), strings.Join(columnDefs, ", "))
	log.Debug().Msgf("creating MySQL table: %s", createSQL)
	if _, err := m.db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	return nil
}

func (m *MySQLDB) DeleteAll(table string) error {
	if _, err := m.db.Exec(fmt.Sprintf("TRUNCATE TABLE %s", m.quoteIdentifier(table))); err != nil {
		return fmt.Errorf("failed to truncate table %s: %w", table, err)
	}
	return nil
}

func (m *MySQLDB) mapToMySQLType(column Column) string {
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
		return "DOUBLE"
	case strings.Contains(typeName, "DEC"), strings.Contains(typeName, "NUMERIC"), strings.Contains(typeName, "NUMBER"):
		if precision > 0 {
			if scale < 0 {
				scale = 0
			}
			return fmt.Sprintf("DECIMAL(%d,%d)", precision, scale)
		}
		return "DECIMAL(38,0)"
	case strings.Contains(typeName, "CHAR"), strings.Contains(typeName, "TEXT"), strings.Contains(typeName, "CLOB"), strings.Contains(typeName, "STRING"):
		if length > 0 && length <= 65535 {
			return fmt.Sprintf("VARCHAR(%d)", length)
		}
		return "TEXT"
	case strings.Contains(typeName, "DATE"), strings.Contains(typeName, "TIME"):
		return "DATETIME"
	case strings.Contains(typeName, "BLOB"), strings.Contains(typeName, "BINARY"), strings.Contains(typeName, "RAW"):
		return "LONGBLOB"
	case strings.Contains(typeName, "BOOL"):
		return "TINYINT(1)"
	default:
		return "TEXT"
	}
}

func (m *MySQLDB) quoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, "`", "``")
	return "`" + escaped + "`"
}
