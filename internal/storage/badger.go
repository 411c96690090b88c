package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/notekeep-go/internal/telemetry/logger"
)

// BadgerKV implements KV using Badger v3.
type BadgerKV struct {
	db        *badger.DB
	cfg       BadgerConfig
	namespace string
	logger    logger.Logger

	lastGCTime atomic.Int64 // Unix milliseconds
	closed     atomic.Bool

	// Prometheus metrics (nil until RegisterMetrics)
	metricsLSMSize      prometheus.GaugeFunc
	metricsValueLogSize prometheus.GaugeFunc

	// Shutdown
	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// NewBadgerKV opens (or creates) a Badger database in cfg.Dir.
func NewBadgerKV(cfg KVConfig, log logger.Logger) (*BadgerKV, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if log == nil {
		log = logger.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{logger: log}

	badgerCfg := cfg.Badger
	if badgerCfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = badgerCfg.ValueLogFileSize
	}
	opts.SyncWrites = badgerCfg.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	kv := &BadgerKV{
		db:        db,
		cfg:       badgerCfg,
		namespace: cfg.Namespace,
		logger:    log,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}

	go kv.gcLoop()

	log.Debug("badger kv opened",
		"dir", cfg.Dir,
		"namespace", cfg.Namespace,
		"gc_interval", badgerCfg.GCInterval)

	return kv, nil
}

func (k *BadgerKV) key(key string) []byte {
	return []byte(NamespacedKey(k.namespace, key))
}

// Get retrieves a value by key.
func (k *BadgerKV) Get(ctx context.Context, key string) ([]byte, error) {
	if k.closed.Load() {
		return nil, ErrClosed
	}

	var value []byte
	err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k.key(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrKeyNotFound
			}
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

// Set stores a key-value pair.
func (k *BadgerKV) Set(ctx context.Context, key string, value []byte) error {
	return k.Apply(ctx, []Op{SetOp(key, value)})
}

// Delete removes a key.
func (k *BadgerKV) Delete(ctx context.Context, key string) error {
	return k.Apply(ctx, []Op{DeleteOp(key)})
}

// Apply executes all ops in a single read-write transaction.
func (k *BadgerKV) Apply(ctx context.Context, ops []Op) error {
	if k.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return k.db.Update(func(txn *badger.Txn) error {
		for _, op := range ops {
			var err error
			switch op.Kind {
			case OpSet:
				err = txn.Set(k.key(op.Key), op.Value)
			case OpDelete:
				err = txn.Delete(k.key(op.Key))
			default:
				err = fmt.Errorf("badger: unknown op kind %d", op.Kind)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// GC runs value log garbage collection until Badger reports nothing to rewrite.
func (k *BadgerKV) GC() error {
	startTime := time.Now()
	runs := 0
	for {
		err := k.db.RunValueLogGC(k.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return fmt.Errorf("gc: %w", err)
		}
		runs++
	}

	k.lastGCTime.Store(time.Now().UnixMilli())
	k.logger.Debug("badger gc completed",
		"rewrites", runs,
		"elapsed", time.Since(startTime))

	return nil
}

// LastGC returns the time of the last completed GC, or the zero time.
func (k *BadgerKV) LastGC() time.Time {
	ms := k.lastGCTime.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Size returns the LSM and value log sizes in bytes.
func (k *BadgerKV) Size() (lsm, vlog int64) {
	return k.db.Size()
}

// Close gracefully shuts down the Badger database. Safe to call twice.
func (k *BadgerKV) Close() error {
	var err error
	k.closeOnce.Do(func() {
		k.closed.Store(true)
		close(k.stopCh)
		<-k.doneCh

		if cerr := k.db.Close(); cerr != nil {
			err = fmt.Errorf("close db: %w", cerr)
			return
		}
		k.logger.Debug("badger kv closed")
	})
	return err
}

// RegisterMetrics registers Badger size gauges with the given registerer.
// Returns the engine for method chaining.
func (k *BadgerKV) RegisterMetrics(reg prometheus.Registerer) *BadgerKV {
	k.metricsLSMSize = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "notekeep",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	}, func() float64 {
		lsm, _ := k.db.Size()
		return float64(lsm)
	})

	k.metricsValueLogSize = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "notekeep",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	}, func() float64 {
		_, vlog := k.db.Size()
		return float64(vlog)
	})

	reg.MustRegister(k.metricsLSMSize, k.metricsValueLogSize)
	return k
}

// gcLoop runs periodic garbage collection.
func (k *BadgerKV) gcLoop() {
	defer close(k.doneCh)

	interval, err := time.ParseDuration(k.cfg.GCInterval)
	if err != nil || interval <= 0 {
		k.logger.Warn("invalid gc_interval, using default 30m", "value", k.cfg.GCInterval)
		interval = 30 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := k.GC(); err != nil {
				k.logger.Warn("auto gc failed", "error", err)
			}
		case <-k.stopCh:
			return
		}
	}
}

// badgerLogger adapts logger.Logger to Badger's Logger interface.
// Badger is chatty at info level, so info is demoted to debug.
type badgerLogger struct {
	logger logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
