package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	_ "github.com/sijms/go-ora/v2"
)

type OracleDB struct {
	db *sql.DB
}

var _ DB = (*OracleDB)(nil)

func NewOracleDB(dsn string, logQueries bool) (*OracleDB, error) {
	db, err := openAndPing("oracle", dsn, logQueries)
	if err != nil {
		return nil, err
	}

	log.Debug().Msg("connected to Oracle database")
	return &OracleDB{db: db}, nil
}

func (o *OracleDB) Close() error {
	if o.db != nil {
		return o.db.Close()
	}
	return nil
}

func (o *OracleDB) TableExists(table string) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM user_tables WHERE table_name = UPPER(:1)"
	if err := o.db.QueryRow(query, table).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check table existence for %s: %w", table, err)
	}
	return count > 0, nil
}

func (o *OracleDB) Count(table string) (int64, error) {
	var count int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	if err := o.db.QueryRow(countSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get row count for table %s: %w", table, err)
	}
	return count, nil
}

func (o *OracleDB) Columns(table string) ([]Column, error) {
	rows, err := o.db.Query(fmt.Sprintf("SELECT * FROM %s WHERE ROWNUM < 1", table))
	if err != nil {
		return nil, fmt.Errorf("failed to read schema of table %s: %w", table, err)
	}
	defer rows.Close()

	return columnsFromRows(rows)
}

func (o *OracleDB) PrimaryKey(table string) (string, error) {
	query := `SELECT cols.column_name FROM user_constraints cons
		JOIN user_cons_columns cols ON cons.constraint_name = cols.constraint_name
		WHERE cons.constraint_type = 'P' AND cons.table_name = UPPER(:1) AND cols.position = 1`

	var column string
	err := o.db.QueryRow(query, table).Scan(&column)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to infer primary key for table %s: %w", table, err)
	}
	return column, nil
}

func (o *OracleDB) SelectRange(table, orderBy string, offset, limit int64) ([]string, [][]any, error) {
	// OFFSET/FETCH (12c+) needs a deterministic ORDER BY to paginate.
	order := "1"
	if orderBy != "" {
		order = orderBy
	}
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s OFFSET :1 ROWS FETCH NEXT :2 ROWS ONLY", table, order)

	rows, err := o.db.Query(query, offset, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch rows [%d, %d) from table %s: %w", offset, offset+limit, table, err)
	}
	defer rows.Close()

	return scanAll(rows)
}

func (o *OracleDB) InsertBatch(table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := o.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf(":%d", i+1)
	}

	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
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

func (o *OracleDB) CreateTable(table string, columns []Column) error {
	if len(columns) == 0 {
		return fmt.Errorf("no columns provided for table creation")
	}

	exists, err := o.TableExists(table)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	columnDefs := make([]string, len(columns))
	for i, col := range columns {
		columnDefs[i] = fmt.Sprintf("%s %s", col.Name, o.mapToOracleType(col))
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(columnDefs, ", "))
	log.Debug().Msgf("creating Oracle table: %s", createSQL)
	if _, err := o.db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	return nil
}

func (o *OracleDB) DeleteAll(table string) error {
	if _, err := o.db.Exec(fmt.Sprintf("TRUNCATE TABLE %s", table)); err != nil {
		return fmt.Errorf("failed to truncate table %s: %w", table, err)
	}
	return nil
}

func (o *OracleDB) mapToOracleType(column Column) string {
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
		return "NUMBER(19)"
	case strings.Contains(typeName, "DOUBLE"), strings.Contains(typeName, "FLOAT"), strings.Contains(typeName, "REAL"):
		return "BINARY_DOUBLE"
	case strings.Contains(typeName, "DEC"), strings.Contains(typeName, "NUMERIC"), strings.Contains(typeName, "NUMBER"):
		if precision > 0 {
			if scale < 0 {
				scale = 0
			}
			return fmt.Sprintf("NUMBER(%d,%d)", precision, scale)
		}
		return "NUMBER(38,0)"
	case strings.Contains(typeName, "CHAR"), strings.Contains(typeName, "TEXT"), strings.Contains(typeName, "CLOB"), strings.Contains(typeName, "STRING"):
		if length > 0 && length <= 4000 {
			return fmt.Sprintf("VARCHAR2(%d)", length)
		}
		return "CLOB"
	case strings.Contains(typeName, "DATE"), strings.Contains(typeName, "TIME"):
		return "TIMESTAMP"
	case strings.Contains(typeName, "BLOB"), strings.Contains(typeName, "BINARY"), strings.Contains(typeName, "RAW"):
		return "BLOB"
	case strings.Contains(typeName, "BOOL"):
		return "NUMBER(1)"
	default:
		return "VARCHAR2(4000)"
	}
}
