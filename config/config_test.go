package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validYAML = `
source:
  db_type: mysql
  host: src.example.com
  database: app
  username: reader
  password: secret
  table: events
destination:
  db_type: postgresql
  host: dst.example.com
  database: warehouse
  username: writer
  password: secret
  table: events
migration:
  batch_size: 500
  truncate_destination: true
`

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	require.Equal(t, "mysql", cfg.Source.DBType)
	require.Equal(t, "src.example.com", cfg.Source.Host)
	require.Equal(t, "events", cfg.Source.Table)
	require.Equal(t, "postgresql", cfg.Destination.DBType)
	require.Equal(t, 500, cfg.Migration.BatchSize)
	require.True(t, cfg.Migration.TruncateDestination)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
source:
  db_type: sqlite
  database: ./source.db
  table: events
destination:
  db_type: MySQL
  host: localhost
  database: warehouse
  username: writer
  table: events
`))
	require.NoError(t, err)

	require.Equal(t, DefaultBatchSize, cfg.Migration.BatchSize)
	require.True(t, cfg.Migration.CreateTable())
	require.True(t, cfg.Migration.Progress())
	require.False(t, cfg.Migration.TruncateDestination)
	require.False(t, cfg.Migration.LogQueries)

	// db_type is normalized and default ports applied.
	require.Equal(t, "mysql", cfg.Destination.DBType)
	require.Equal(t, 3306, cfg.Destination.Port)
	require.Equal(t, 0, cfg.Source.Port)
}

func TestLoadDefaultPorts(t *testing.T) {
	for dbType, port := range map[string]int{
		DatabaseTypeMySQL:      3306,
		DatabaseTypePostgreSQL: 5432,
		DatabaseTypeMSSQL:      1433,
		DatabaseTypeOracle:     1521,
	} {
		spec := ConnectionSpec{DBType: dbType}
		applyPortDefault(&spec)
		require.Equal(t, port, spec.Port, "default port for %s", dbType)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	cases := map[string]string{
		"unsupported db_type": `
source:
  db_type: mongodb
  host: h
  database: d
  username: u
  table: t
destination:
  db_type: sqlite
  database: ./d.db
  table: t
`,
		"missing table": `
source:
  db_type: sqlite
  database: ./s.db
destination:
  db_type: sqlite
  database: ./d.db
  table: t
`,
		"missing host": `
source:
  db_type: postgresql
  database: d
  username: u
  table: t
destination:
  db_type: sqlite
  database: ./d.db
  table: t
`,
		"negative batch size": `
source:
  db_type: sqlite
  database: ./s.db
  table: t
destination:
  db_type: sqlite
  database: ./d.db
  table: t
migration:
  batch_size: -5
`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			require.Error(t, err)
		})
	}
}

func TestMSSQLTrustedConnection(t *testing.T) {
	// Empty credentials are valid for mssql (Windows authentication).
	cfg, err := Load(writeConfig(t, `
source:
  db_type: mssql
  host: sqlhost
  database: app
  table: events
destination:
  db_type: sqlite
  database: ./d.db
  table: events
`))
	require.NoError(t, err)
	require.Empty(t, cfg.Source.Username)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SOURCE_PASSWORD", "env-src-secret")
	t.Setenv("DEST_USERNAME", "env-writer")
	t.Setenv("DEST_PASSWORD", "env-dst-secret")

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	require.Equal(t, "env-src-secret", cfg.Source.Password)
	require.Equal(t, "env-writer", cfg.Destination.Username)
	require.Equal(t, "env-dst-secret", cfg.Destination.Password)
	require.Equal(t, "reader", cfg.Source.Username)
}
