package transfer

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"rowferry/config"
	"rowferry/database"
)

// Syncer copies only the rows the destination is missing: the tail range
// [destination_count, source_count) under the source's stable order.
//
// Precondition: the destination must hold exactly the first destination_count
// rows of the source's stable order. That holds when source rows are
// append-only and the order column is stable (primary key, or first column
// when no key exists — the latter is not guaranteed stable on every engine).
// Syncer never diffs row contents or keys; it is not a reconciliation
// algorithm.
type Syncer struct {
	cfg  *config.Config
	open OpenFunc
}

func NewSyncer(cfg *config.Config) *Syncer {
	return &Syncer{cfg: cfg, open: database.Open}
}

// Run computes the missing tail range and copies it in batches. When the
// destination already holds at least as many rows as the source, Run performs
// zero writes and reports the tables as in sync.
func (s *Syncer) Run() (*Result, error) {
	start := time.Now()
	opts := s.cfg.Migration

	src, dst, err := openPair(s.cfg, s.open)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := closePair(src, dst); cerr != nil {
			log.Warn().Err(cerr).Msg("failed to close connections")
		}
	}()

	srcTable := s.cfg.Source.Table
	dstTable := s.cfg.Destination.Table

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

	destCount, err := destinationCount(dst, dstTable)
	if err != nil {
		return nil, &ConnectionError{Side: "destination", Err: err}
	}

	log.Info().Msgf("source table row count: %d", sourceCount)
	log.Info().Msgf("destination table row count: %d", destCount)

	toSync := sourceCount - destCount
	if toSync <= 0 {
		if toSync < 0 {
			log.Warn().Msgf("destination has %d more rows than source; nothing to sync", -toSync)
		} else {
			log.Info().Msg("tables are already in sync")
		}
		return &Result{
			SourceCount:      sourceCount,
			DestinationCount: destCount,
			InSync:           true,
			Success:          true,
			Duration:         time.Since(start),
		}, nil
	}

	log.Info().Msgf("need to sync %d rows", toSync)

	if opts.CreateTable() {
		if err := ensureDestinationTable(src, dst, srcTable, dstTable); err != nil {
			return nil, err
		}
	}

	orderBy, err := orderColumn(src, srcTable)
	if err != nil {
		return nil, &ConnectionError{Side: "source", Err: err}
	}

	log.Info().Msgf("syncing rows from position %d to %d with batch size %d", destCount, sourceCount, opts.BatchSize)
	bar := newBar(opts, toSync, fmt.Sprintf("Syncing %s", srcTable))
	copied, batches, err := copyRange(src, dst, srcTable, dstTable, orderBy, destCount, sourceCount, int64(opts.BatchSize), bar)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return nil, err
	}
	log.Info().Msgf("sync copied %d rows in %d batches", copied, batches)

	newDestCount, err := dst.Count(dstTable)
	if err != nil {
		return nil, &ConnectionError{Side: "destination", Err: err}
	}

	log.Info().Msgf("verification: source=%d destination=%d", sourceCount, newDestCount)
	return &Result{
		SourceCount:      sourceCount,
		DestinationCount: newDestCount,
		RowsCopied:       copied,
		Batches:          batches,
		Success:          newDestCount == sourceCount,
		Duration:         time.Since(start),
	}, nil
}
