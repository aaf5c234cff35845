// Package transfer implements the batched copy and incremental sync engines.
// Both operate strictly sequentially: batches are issued and committed in
// increasing offset order, one at a time, each in its own transaction.
package transfer

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"

	"rowferry/config"
	"rowferry/database"
	"rowferry/progress"
)

// OpenFunc opens a database handle for one side of a transfer.
type OpenFunc func(spec config.ConnectionSpec, logQueries bool) (database.DB, error)

// Result summarizes a completed run. Success compares the final destination
// count against the source count captured at the start of the run; it is the
// sole correctness signal, not a content diff.
type Result struct {
	SourceCount      int64
	DestinationCount int64
	RowsCopied       int64
	Batches          int
	Duration         time.Duration
	InSync           bool
	Success          bool
}

// openPair opens source then destination, failing fast and naming the side
// that could not be reached.
func openPair(cfg *config.Config, open OpenFunc) (src, dst database.DB, err error) {
	log.Info().Msgf("source: %s://%s:%d/%s.%s",
		cfg.Source.DBType, cfg.Source.Host, cfg.Source.Port, cfg.Source.Database, cfg.Source.Table)
	log.Info().Msgf("destination: %s://%s:%d/%s.%s",
		cfg.Destination.DBType, cfg.Destination.Host, cfg.Destination.Port, cfg.Destination.Database, cfg.Destination.Table)

	src, err = open(cfg.Source, cfg.Migration.LogQueries)
	if err != nil {
		return nil, nil, &ConnectionError{Side: "source", Err: err}
	}
	log.Info().Msg("source connection successful")

	dst, err = open(cfg.Destination, cfg.Migration.LogQueries)
	if err != nil {
		src.Close()
		return nil, nil, &ConnectionError{Side: "destination", Err: err}
	}
	log.Info().Msg("destination connection successful")

	return src, dst, nil
}

func closePair(src, dst database.DB) error {
	var errs *multierror.Error
	if src != nil {
		if err := src.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("source: %w", err))
		}
	}
	if dst != nil {
		if err := dst.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("destination: %w", err))
		}
	}
	return errs.ErrorOrNil()
}

// ensureDestinationTable creates the destination table from the source
// table's column metadata when it does not exist yet. The create statement
// is a single DDL operation; on failure nothing has been copied.
func ensureDestinationTable(src, dst database.DB, srcTable, dstTable string) error {
	exists, err := dst.TableExists(dstTable)
	if err != nil {
		return &ConnectionError{Side: "destination", Err: err}
	}
	if exists {
		log.Info().Msgf("table %s already exists", dstTable)
		return nil
	}

	columns, err := src.Columns(srcTable)
	if err != nil {
		return &SchemaError{Table: srcTable, Err: err}
	}

	log.Info().Msgf("creating table %s...", dstTable)
	if err := dst.CreateTable(dstTable, columns); err != nil {
		return &SchemaError{Table: dstTable, Err: err}
	}

	return nil
}

// orderColumn picks the pagination order: the source's primary key when one
// exists, otherwise the first column. Without a primary key the implicit row
// order is not guaranteed stable across engines; callers rely on the
// append-only precondition documented on Syncer.
func orderColumn(db database.DB, table string) (string, error) {
	pk, err := db.PrimaryKey(table)
	if err != nil {
		return "", err
	}
	if pk != "" {
		log.Info().Msgf("detected primary key column: %s", pk)
		return pk, nil
	}

	columns, err := db.Columns(table)
	if err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("table %s has no columns", table)
	}

	log.Warn().Msgf("no primary key detected on %s; ordering by first column %s", table, columns[0].Name)
	return columns[0].Name, nil
}

// copyRange streams rows [start, end) from source to destination in batches
// of batchSize, committing each batch atomically before fetching the next.
// Any failure aborts immediately; earlier batches stay committed.
func copyRange(src, dst database.DB, srcTable, dstTable, orderBy string, start, end, batchSize int64, bar *progress.Bar) (int64, int, error) {
	var copied int64
	batches := 0

	for offset := start; offset < end; offset += batchSize {
		limit := batchSize
		if remaining := end - offset; remaining < limit {
			limit = remaining
		}

		columns, rows, err := src.SelectRange(srcTable, orderBy, offset, limit)
		if err != nil {
			return copied, batches, &BatchError{Offset: offset, Err: err}
		}
		if len(rows) == 0 {
			// Source shrank mid-run; stop rather than loop on empty fetches.
			break
		}

		if err := dst.InsertBatch(dstTable, columns, rows); err != nil {
			return copied, batches, &BatchError{Offset: offset, Err: err}
		}

		copied += int64(len(rows))
		batches++
		if bar != nil {
			bar.Add(len(rows))
		}
	}

	return copied, batches, nil
}

// destinationCount returns the destination row count, treating a missing
// table as zero rows.
func destinationCount(dst database.DB, table string) (int64, error) {
	exists, err := dst.TableExists(table)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	return dst.Count(table)
}

func newBar(opts config.Options, total int64, description string) *progress.Bar {
	if !opts.Progress() {
		return nil
	}
	return progress.New(total, description)
}
