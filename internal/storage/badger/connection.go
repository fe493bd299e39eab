package badger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shepard/internal/common"
	"github.com/timshannon/badgerhold/v4"
)

// defaultGCInterval is how often the value log is compacted when the config
// does not say otherwise. Job records, input documents, and queue messages
// all churn through the same store, so reclaimable value-log space
// accumulates steadily on a busy instance.
const defaultGCInterval = 5 * time.Minute

// gcDiscardRatio passes a value-log file to rewrite when at least this
// share of it is stale.
const gcDiscardRatio = 0.5

// BadgerDB manages the Badger database connection
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	config *common.BadgerConfig
	gcStop chan struct{}
	gcDone chan struct{}
}

// NewBadgerDB creates a new Badger database connection
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	// If reset_on_startup is enabled, delete the existing database
	if config.ResetOnStartup {
		if _, err := os.Stat(config.Path); err == nil {
			logger.Debug().Str("path", config.Path).Msg("Deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(config.Path); err != nil {
				logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to delete database directory")
			}
		}
	}

	// Ensure the directory exists
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Opening Badger database connection")

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil // Disable default badger logger to use arbor

	store, err := badgerhold.Open(options)
	if err != nil {
		logger.Fatal().Err(err).Str("path", config.Path).Msg("BadgerDB: Failed to open database")
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	db := &BadgerDB{
		store:  store,
		logger: logger,
		config: config,
	}
	db.startValueLogGC(common.DurationOr(config.GCInterval, defaultGCInterval))

	logger.Debug().Str("path", config.Path).Msg("Badger database initialized")

	return db, nil
}

// startValueLogGC runs value-log garbage collection on a ticker. Badger
// never compacts the value log on its own; without this, deleted jobs and
// acked queue messages hold their disk space until restart. An interval of
// zero (gc_interval = "0") disables the loop.
func (b *BadgerDB) startValueLogGC(interval time.Duration) {
	if interval <= 0 {
		return
	}
	b.gcStop = make(chan struct{})
	b.gcDone = make(chan struct{})

	common.SafeGo(b.logger, "badger-value-log-gc", func() {
		defer close(b.gcDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-b.gcStop:
				return
			case <-ticker.C:
				b.runValueLogGC()
			}
		}
	})
}

// runValueLogGC rewrites value-log files until a pass finds nothing worth
// reclaiming. One file per call is Badger's contract, hence the loop.
func (b *BadgerDB) runValueLogGC() {
	rewritten := 0
	for {
		err := b.store.Badger().RunValueLogGC(gcDiscardRatio)
		if err == nil {
			rewritten++
			continue
		}
		if !errors.Is(err, badgerdb.ErrNoRewrite) {
			b.logger.Warn().Err(err).Msg("Value log GC failed")
		}
		break
	}
	if rewritten > 0 {
		b.logger.Debug().Int("files", rewritten).Msg("Value log GC reclaimed space")
	}
}

// Store returns the underlying badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close stops the GC loop and closes the database connection
func (b *BadgerDB) Close() error {
	if b.gcStop != nil {
		close(b.gcStop)
		<-b.gcDone
		b.gcStop = nil
	}
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
