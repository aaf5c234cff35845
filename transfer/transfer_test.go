package transfer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"rowferry/config"
	"rowferry/database"
)

// fakeDB is an in-memory DB implementation recording every interaction.
type fakeDB struct {
	columns []string
	pk      string
	rows    [][]any
	exists  bool

	failOnInsertBatch int // 1-based batch index that fails, 0 = never
	insertCalls       int
	fetchOffsets      []int64
	created           []database.Column
	truncated         bool
	closed            bool
	openErr           error
}

var _ database.DB = (*fakeDB)(nil)

func (f *fakeDB) Close() error {
	f.closed = true
	return nil
}

func (f *fakeDB) TableExists(string) (bool, error) {
	return f.exists, nil
}

func (f *fakeDB) Count(string) (int64, error) {
	return int64(len(f.rows)), nil
}

func (f *fakeDB) Columns(string) ([]database.Column, error) {
	columns := make([]database.Column, len(f.columns))
	for i, name := range f.columns {
		columns[i] = database.Column{Name: name, DatabaseType: "TEXT"}
	}
	return columns, nil
}

func (f *fakeDB) PrimaryKey(string) (string, error) {
	return f.pk, nil
}

func (f *fakeDB) SelectRange(_, _ string, offset, limit int64) ([]string, [][]any, error) {
	f.fetchOffsets = append(f.fetchOffsets, offset)

	if offset >= int64(len(f.rows)) {
		return f.columns, nil, nil
	}
	end := offset + limit
	if end > int64(len(f.rows)) {
		end = int64(len(f.rows))
	}
	return f.columns, f.rows[offset:end], nil
}

func (f *fakeDB) InsertBatch(_ string, _ []string, rows [][]any) error {
	f.insertCalls++
	if f.failOnInsertBatch > 0 && f.insertCalls == f.failOnInsertBatch {
		return errors.New("injected insert failure")
	}
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeDB) CreateTable(_ string, columns []database.Column) error {
	f.created = columns
	f.exists = true
	return nil
}

func (f *fakeDB) DeleteAll(string) error {
	f.truncated = true
	f.rows = nil
	return nil
}

func makeRows(n int) [][]any {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{int64(i), fmt.Sprintf("row-%d", i)}
	}
	return rows
}

func newSourceFake(n int) *fakeDB {
	return &fakeDB{
		columns: []string{"id", "name"},
		pk:      "id",
		rows:    makeRows(n),
		exists:  true,
	}
}

func boolPtr(b bool) *bool { return &b }

func testConfig(batchSize int) *config.Config {
	return &config.Config{
		Source: config.ConnectionSpec{
			DBType:   config.DatabaseTypeSQLite,
			Database: "./source.db",
			Table:    "events",
		},
		Destination: config.ConnectionSpec{
			DBType:   config.DatabaseTypeSQLite,
			Database: "./dest.db",
			Table:    "events",
		},
		Migration: config.Options{
			BatchSize:    batchSize,
			ShowProgress: boolPtr(false),
		},
	}
}

func fakeOpen(cfg *config.Config, src, dst *fakeDB) OpenFunc {
	return func(spec config.ConnectionSpec, _ bool) (database.DB, error) {
		if spec == cfg.Source {
			if src.openErr != nil {
				return nil, src.openErr
			}
			return src, nil
		}
		if dst.openErr != nil {
			return nil, dst.openErr
		}
		return dst, nil
	}
}

func TestMigrateFull(t *testing.T) {
	cfg := testConfig(1000)
	src := newSourceFake(2500)
	dst := &fakeDB{columns: src.columns, exists: true}

	m := NewMigrator(cfg)
	m.open = fakeOpen(cfg, src, dst)

	result, err := m.Run()
	require.NoError(t, err)

	require.True(t, result.Success)
	require.Equal(t, int64(2500), result.SourceCount)
	require.Equal(t, int64(2500), result.DestinationCount)
	require.Equal(t, int64(2500), result.RowsCopied)
	require.Equal(t, 3, result.Batches, "ceil(2500/1000) batches")
	require.Equal(t, src.rows, dst.rows)
	require.True(t, src.closed)
	require.True(t, dst.closed)
}

func TestMigrateBatchCountScenario(t *testing.T) {
	// 125,430 rows at batch size 1000: 125 full batches plus one of 430.
	cfg := testConfig(1000)
	src := newSourceFake(125430)
	dst := &fakeDB{columns: src.columns}

	m := NewMigrator(cfg)
	m.open = fakeOpen(cfg, src, dst)

	result, err := m.Run()
	require.NoError(t, err)

	require.True(t, result.Success)
	require.NotNil(t, dst.created, "destination table should have been created")
	require.Equal(t, 126, result.Batches)
	require.Equal(t, int64(125430), result.DestinationCount)
}

func TestMigrateEmptySource(t *testing.T) {
	cfg := testConfig(1000)
	src := newSourceFake(0)
	dst := &fakeDB{columns: src.columns, exists: true}

	m := NewMigrator(cfg)
	m.open = fakeOpen(cfg, src, dst)

	result, err := m.Run()
	require.NoError(t, err)

	require.True(t, result.Success)
	require.Zero(t, result.Batches)
	require.Zero(t, result.RowsCopied)
	require.Zero(t, dst.insertCalls)
}

func TestMigrateTruncateDestination(t *testing.T) {
	cfg := testConfig(100)
	cfg.Migration.TruncateDestination = true
	src := newSourceFake(250)
	dst := &fakeDB{columns: src.columns, exists: true, rows: makeRows(40)}

	m := NewMigrator(cfg)
	m.open = fakeOpen(cfg, src, dst)

	result, err := m.Run()
	require.NoError(t, err)

	require.True(t, dst.truncated)
	require.True(t, result.Success)
	require.Equal(t, int64(250), result.DestinationCount)
}

func TestMigrateVerificationMismatch(t *testing.T) {
	// Non-empty destination without truncation: rows duplicate, counts differ.
	cfg := testConfig(100)
	src := newSourceFake(200)
	dst := &fakeDB{columns: src.columns, exists: true, rows: makeRows(50)}

	m := NewMigrator(cfg)
	m.open = fakeOpen(cfg, src, dst)

	result, err := m.Run()
	require.NoError(t, err)

	require.False(t, result.Success)
	require.Equal(t, int64(200), result.SourceCount)
	require.Equal(t, int64(250), result.DestinationCount)
}

func TestMigrateBatchAtomicity(t *testing.T) {
	// Batch 3 fails: exactly the first two batches stay committed.
	cfg := testConfig(1000)
	src := newSourceFake(5000)
	dst := &fakeDB{columns: src.columns, exists: true, failOnInsertBatch: 3}

	m := NewMigrator(cfg)
	m.open = fakeOpen(cfg, src, dst)

	_, err := m.Run()
	require.Error(t, err)

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	require.Equal(t, int64(2000), batchErr.Offset)
	require.Len(t, dst.rows, 2000)
	require.True(t, src.closed, "connections released on error paths")
	require.True(t, dst.closed)
}

func TestMigrateConnectionErrorNamesSide(t *testing.T) {
	cfg := testConfig(1000)
	src := newSourceFake(10)
	dst := &fakeDB{openErr: errors.New("connection refused")}

	m := NewMigrator(cfg)
	m.open = fakeOpen(cfg, src, dst)

	_, err := m.Run()
	require.Error(t, err)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, "destination", connErr.Side)
	require.True(t, src.closed, "source released when destination fails to open")
}

func TestMigrateMissingSourceTable(t *testing.T) {
	cfg := testConfig(1000)
	src := &fakeDB{columns: []string{"id"}}
	dst := &fakeDB{exists: true}

	m := NewMigrator(cfg)
	m.open = fakeOpen(cfg, src, dst)

	_, err := m.Run()
	require.Error(t, err)
	require.Contains(t, err.Error(), "source table")
}

func TestSyncAlreadyInSync(t *testing.T) {
	cfg := testConfig(1000)
	src := newSourceFake(500)
	dst := &fakeDB{columns: src.columns, exists: true, rows: makeRows(500)}

	s := NewSyncer(cfg)
	s.open = fakeOpen(cfg, src, dst)

	result, err := s.Run()
	require.NoError(t, err)

	require.True(t, result.InSync)
	require.True(t, result.Success)
	require.Zero(t, result.RowsCopied)
	require.Zero(t, dst.insertCalls, "no-op sync must perform zero writes")
}

func TestSyncDestinationAhead(t *testing.T) {
	cfg := testConfig(1000)
	src := newSourceFake(100)
	dst := &fakeDB{columns: src.columns, exists: true, rows: makeRows(150)}

	s := NewSyncer(cfg)
	s.open = fakeOpen(cfg, src, dst)

	result, err := s.Run()
	require.NoError(t, err)

	require.True(t, result.InSync)
	require.Zero(t, dst.insertCalls)
	require.Len(t, dst.rows, 150, "destination untouched")
}

func TestSyncTailRange(t *testing.T) {
	// Destination holds the first 12,000 rows of a 15,250-row source:
	// sync copies [12000, 15250) in 4 batches (3 x 1000 + 1 x 250).
	cfg := testConfig(1000)
	src := newSourceFake(15250)
	dst := &fakeDB{columns: src.columns, exists: true, rows: makeRows(12000)}

	s := NewSyncer(cfg)
	s.open = fakeOpen(cfg, src, dst)

	result, err := s.Run()
	require.NoError(t, err)

	require.True(t, result.Success)
	require.False(t, result.InSync)
	require.Equal(t, int64(3250), result.RowsCopied)
	require.Equal(t, 4, result.Batches)
	require.Equal(t, int64(15250), result.DestinationCount)
	require.Equal(t, []int64{12000, 13000, 14000, 15000}, src.fetchOffsets,
		"batches issued in strictly increasing offset order")
	require.Equal(t, src.rows, dst.rows)
}

func TestSyncCreatesMissingDestinationTable(t *testing.T) {
	cfg := testConfig(1000)
	src := newSourceFake(42)
	dst := &fakeDB{columns: src.columns}

	s := NewSyncer(cfg)
	s.open = fakeOpen(cfg, src, dst)

	result, err := s.Run()
	require.NoError(t, err)

	require.True(t, result.Success)
	require.NotNil(t, dst.created)
	require.Equal(t, int64(42), result.DestinationCount)
}

func TestSyncBatchFailureKeepsPriorBatches(t *testing.T) {
	cfg := testConfig(100)
	src := newSourceFake(1000)
	dst := &fakeDB{columns: src.columns, exists: true, rows: makeRows(500), failOnInsertBatch: 2}

	s := NewSyncer(cfg)
	s.open = fakeOpen(cfg, src, dst)

	_, err := s.Run()
	require.Error(t, err)

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	require.Equal(t, int64(600), batchErr.Offset)
	require.Len(t, dst.rows, 600)
}

func TestSyncNoPrimaryKeyFallsBackToFirstColumn(t *testing.T) {
	cfg := testConfig(10)
	src := newSourceFake(25)
	src.pk = ""
	dst := &fakeDB{columns: src.columns, exists: true, rows: makeRows(5)}

	s := NewSyncer(cfg)
	s.open = fakeOpen(cfg, src, dst)

	result, err := s.Run()
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, int64(25), result.DestinationCount)
}
