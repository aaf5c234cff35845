package transfer

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"rowferry/config"
	"rowferry/database"
)

// Migrator performs a full copy of the source table into the destination
// table. The run is not globally transactional: each batch commits on its
// own, and a mid-run failure leaves all previously committed batches in
// place. Re-running against a non-empty destination without truncation
// duplicates rows unless the destination enforces uniqueness.
type Migrator struct {
	cfg  *config.Config
	open OpenFunc
}

func NewMigrator(cfg *config.Config) *Migrator {
	return &Migrator{cfg: cfg, open: database.Open}
}

// Run executes the full migration and reports the outcome. Result.Success is
// true iff the final destination count equals the source count captured at
// the start of the run.
func (m *Migrator) Run() (*Result, error) {
	start := time.Now()
	opts := m.cfg.Migration

	src, dst, err := openPair(m.cfg, m.open)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := closePair(src, dst); cerr != nil {
			log.Warn().Err(cerr).Msg("failed to close connections")
		}
	}()

	srcTable := m.cfg.Source.Table
	dstTable := m.cfg.Destination.Table

	exists, err := src.TableExists(srcTable)
	if err != nil {
		return nil, &ConnectionError{Side: "source", Err: err}
	}
	if !exists {
		return nil, fmt.Errorf("source table %s does not exist", srcTable)
	}

	sourceCount, err := src.Count(srcTable)
	if err != nil {
		return nil, &ConnectionError{Side: "source", Err: err}
	}
	log.Info().Msgf("source table row count: %d", sourceCount)

	if opts.CreateTable() {
		if err := ensureDestinationTable(src, dst, srcTable, dstTable); err != nil {
			return nil, err
		}
	}

	if opts.TruncateDestination {
		log.Info().Msgf("truncating destination table %s...", dstTable)
		if err := dst.DeleteAll(dstTable); err != nil {
			return nil, err
		}
	}

	orderBy, err := orderColumn(src, srcTable)
	if err != nil {
		return nil, &ConnectionError{Side: "source", Err: err}
	}

	result := &Result{SourceCount: sourceCount}

	if sourceCount == 0 {
		log.Info().Msg("no data to migrate (source table is empty)")
	} else {
		log.Info().Msgf("starting migration with batch size %d", opts.BatchSize)
		bar := newBar(opts, sourceCount, fmt.Sprintf("Migrating %s", srcTable))
		copied, batches, err := copyRange(src, dst, srcTable, dstTable, orderBy, 0, sourceCount, int64(opts.BatchSize), bar)
		if bar != nil {
			bar.Finish()
		}
		result.RowsCopied = copied
		result.Batches = batches
		if err != nil {
			return nil, err
		}
		log.Info().Msgf("migration copied %d rows in %d batches", copied, batches)
	}

	destCount, err := dst.Count(dstTable)
	if err != nil {
		return nil, &ConnectionError{Side: "destination", Err: err}
	}

	result.DestinationCount = destCount
	result.Success = destCount == sourceCount
	result.Duration = time.Since(start)

	log.Info().Msgf("verification: source=%d destination=%d", sourceCount, destCount)
	return result, nil
}
