package database

import (
	"database/sql"
	"fmt"
)

// scanAll drains a result set into generic row slices, returning the column
// names alongside the values. NULLs stay nil; []byte values are copied since
// drivers may reuse the buffer between scans.
func scanAll(rows *sql.Rows) ([]string, [][]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var out [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}

		for i, value := range values {
			if b, ok := value.([]byte); ok {
				copied := make([]byte, len(b))
				copy(copied, b)
				values[i] = copied
			}
		}

		out = append(out, values)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return columns, out, nil
}

// columnsFromRows converts driver column type metadata into Column records.
func columnsFromRows(rows *sql.Rows) ([]Column, error) {
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}

	columns := make([]Column, len(columnTypes))
	for i, ct := range columnTypes {
		col := Column{
			Name:         ct.Name(),
			DatabaseType: ct.DatabaseTypeName(),
		}
		if st := ct.ScanType(); st != nil {
			col.GoType = st.String()
		}
		if length, ok := ct.Length(); ok {
			col.Length = length
			col.LengthValid = true
		}
		if precision, scale, ok := ct.DecimalSize(); ok {
			col.Precision = precision
			col.Scale = scale
			col.PrecisionScaleValid = true
		}
		columns[i] = col
	}

	return columns, nil
}

func questionPlaceholders(count int) []string {
	placeholders := make([]string, count)
	for i := range placeholders {
		placeholders[i] = "?"
	}
	return placeholders
}
