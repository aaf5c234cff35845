package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type PostgresDB struct {
	db *sql.DB
}

var _ DB = (*PostgresDB)(nil)

func NewPostgresDB(dsn string, logQueries bool) (*PostgresDB, error) {
	db, err := openAndPing("postgres", dsn, logQueries)
	if err != nil {
		return nil, err
	}

	log.Debug().Msg("connected to PostgreSQL database")
	return &PostgresDB{db: db}, nil
}

func (p *PostgresDB) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *PostgresDB) TableExists(table string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1)"
	if err := p.db.QueryRow(query, table).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check table existence for %s: %w", table, err)
	}
	return exists, nil
}

func (p *PostgresDB) Count(table string) (int64, error) {
	var count int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s", p.quoteIdentifier(table))
	if err := p.db.QueryRow(countSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get row count for table %s: %w", table, err)
	}
	return count, nil
}

func (p *PostgresDB) Columns(table string) ([]Column, error) {
	rows, err := p.db.Query(fmt.Sprintf("SELECT * FROM %s LIMIT 0", p.quoteIdentifier(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to read schema of table %s: %w", table, err)
	}
	defer rows.Close()

	return columnsFromRows(rows)
}

func (p *PostgresDB) PrimaryKey(table string) (string, error) {
	query := `SELECT kcu.column_name FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = current_schema() AND tc.table_name = $1
		ORDER BY kcu.ordinal_position LIMIT 1`

	var column string
	err := p.db.QueryRow(query, table).Scan(&column)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to infer primary key for table %s: %w", table, err)
	}
	return column, nil
}

func (p *PostgresDB) SelectRange(table, orderBy string, offset, limit int64) ([]string, [][]any, error) {
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s LIMIT $1 OFFSET $2",
		p.quoteIdentifier(table), p.quoteIdentifier(orderBy))

	rows, err := p.db.Query(query, limit, offset)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch rows [%d, %d) from table %s: %w", offset, offset+limit, table, err)
	}
	defer rows.Close()

	return scanAll(rows)
}

func (p *PostgresDB) InsertBatch(table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := make([]string, len(columns))
	columnNames := make([]string, len(columns))
	for i, col := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		columnNames[i] = p.quoteIdentifier(col)
	}

	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		p.quoteIdentifier(table),
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

func (p *PostgresDB) CreateTable(table string, columns []Column) error {
	if len(columns) == 0 {
		return fmt.Errorf("no columns provided for table creation")
	}

	columnDefs := make([]string, len(columns))
	for i, col := range columns {
		columnDefs[i] = fmt.Sprintf("%s %s", p.quoteIdentifier(col.Name), p.mapToPostgresType(col))
	}

	createSQL := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		p.quoteIdentifier(table), strings.Join(columnDefs, ", "))
	log.Debug().Msgf("creating PostgreSQL table: %s", createSQL)
	if _, err := p.db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	return nil
}

func (p *PostgresDB) DeleteAll(table string) error {
	if _, err := p.db.Exec(fmt.Sprintf("TRUNCATE TABLE %s", p.quoteIdentifier(table))); err != nil {
		return fmt.Errorf("failed to truncate table %s: %w", table, err)
	}
	return nil
}

func (p *PostgresDB) mapToPostgresType(column Column) string {
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
		return "DOUBLE PRECISION"
	case strings.Contains(typeName, "DEC"), strings.Contains(typeName, "NUMERIC"), strings.Contains(typeName, "NUMBER"):
		if precision > 0 {
			if scale < 0 {
				scale = 0
			}
			return fmt.Sprintf("NUMERIC(%d,%d)", precision, scale)
		}
		return "NUMERIC(38,0)"
	case strings.Contains(typeName, "CHAR"), strings.Contains(typeName, "TEXT"), strings.Contains(typeName, "CLOB"), strings.Contains(typeName, "STRING"):
		if length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", length)
		}
		return "TEXT"
	case strings.Contains(typeName, "DATE"), strings.Contains(typeName, "TIME"):
		return "TIMESTAMP"
	case strings.Contains(typeName, "BLOB"), strings.Contains(typeName, "BINARY"), strings.Contains(typeName, "RAW"), strings.Contains(typeName, "BYTEA"):
		return "BYTEA"
	case strings.Contains(typeName, "BOOL"):
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

func (p *PostgresDB) quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
