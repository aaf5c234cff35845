package database

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	sqldblogger "github.com/simukti/sqldb-logger"
	"github.com/simukti/sqldb-logger/logadapter/zerologadapter"

	"rowferry/config"
)

// Open picks the engine implementation from the spec's db_type, builds the
// connection string and verifies connectivity with a ping. The returned DB
// is owned exclusively by the caller for the duration of the run.
func Open(spec config.ConnectionSpec, logQueries bool) (DB, error) {
	switch spec.DBType {
	case config.DatabaseTypeMySQL:
		return NewMySQLDB(buildMySQLDSN(spec), logQueries)
	case config.DatabaseTypePostgreSQL:
		return NewPostgresDB(buildPostgresDSN(spec), logQueries)
	case config.DatabaseTypeMSSQL:
		return NewSQLServerDB(buildSQLServerDSN(spec), logQueries)
	case config.DatabaseTypeOracle:
		return NewOracleDB(buildOracleDSN(spec), logQueries)
	case config.DatabaseTypeSQLite:
		return NewSQLiteDB(spec.Database, logQueries)
	default:
		return nil, fmt.Errorf("unsupported database type '%s'", spec.DBType)
	}
}

func buildMySQLDSN(spec config.ConnectionSpec) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		spec.Username,
		spec.Password,
		spec.Host,
		spec.Port,
		spec.Database,
	)
}

func buildPostgresDSN(spec config.ConnectionSpec) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		spec.Username,
		spec.Password,
		spec.Host,
		spec.Port,
		spec.Database,
	)
}

func buildSQLServerDSN(spec config.ConnectionSpec) string {
	if spec.Username == "" && spec.Password == "" {
		// Trusted (Windows) authentication.
		return fmt.Sprintf("sqlserver://%s:%d?database=%s&trusted_connection=yes",
			spec.Host, spec.Port, spec.Database)
	}
	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
		spec.Username,
		spec.Password,
		spec.Host,
		spec.Port,
		spec.Database,
	)
}

func buildOracleDSN(spec config.ConnectionSpec) string {
	return fmt.Sprintf("oracle://%s:%s@%s:%d/%s",
		spec.Username,
		spec.Password,
		spec.Host,
		spec.Port,
		spec.Database,
	)
}

// openAndPing opens the connection, optionally wrapping the driver so every
// statement is logged, and fails fast when the database is unreachable.
func openAndPing(driverName, dsn string, logQueries bool) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driverName, err)
	}

	if logQueries {
		db = addQueryLogger(db, dsn, driverName)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}

	return db, nil
}

func addQueryLogger(db *sql.DB, dsn, driverName string) *sql.DB {
	adapter := zerologadapter.New(log.With().Str("driver", driverName).Logger())
	return sqldblogger.OpenDriver(dsn, db.Driver(), adapter,
		sqldblogger.WithSQLQueryAsMessage(true),
		sqldblogger.WithDurationUnit(sqldblogger.DurationMillisecond),
		sqldblogger.WithDurationFieldname("dur_ms"),
	)
}
