package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/suggestit/core"
	"github.com/poiesic/suggestit/storage"
)

// Result counts the outcome of an import.
type Result struct {
	Imported int `json:"imported"`
	Failed   int `json:"failed"`
}

// Importer writes batches into the manual-record store.
type Importer struct {
	repo           storage.ManualRepository
	batchSize      int
	maxRetries     int
	retryDelay     time.Duration
	progress       io.Writer
	reportInterval int
	logger         *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer) error

// WithBatchSize sets how many records are written per transaction.
// Default is 100.
func WithBatchSize(n int) Option {
	return func(im *Importer) error {
		if n <= 0 {
			return fmt.Errorf("batch size must be greater than 0, got %d", n)
		}
		im.batchSize = n
		return nil
	}
}

// WithRetry sets the attempts and base backoff delay of each chunk write.
// Default is 3 attempts starting at 100ms.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(im *Importer) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		im.maxRetries = maxAttempts
		im.retryDelay = baseDelay
		return nil
	}
}

// WithProgress reports progress to w every interval items.
func WithProgress(w io.Writer, interval int) Option {
	return func(im *Importer) error {
		im.progress = w
		im.reportInterval = interval
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(im *Importer) error {
		if logger == nil {
			logger = slog.Default()
		}
		im.logger = logger
		return nil
	}
}

// NewImporter creates an importer writing to repo.
func NewImporter(repo storage.ManualRepository, opts ...Option) (*Importer, error) {
	if repo == nil {
		return nil, ErrManualRepositoryRequired
	}
	im := &Importer{
		repo:       repo,
		batchSize:  100,
		maxRetries: 3,
		retryDelay: 100 * time.Millisecond,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(im); err != nil {
			return nil, err
		}
	}
	im.logger = im.logger.With("component", "ingest")
	return im, nil
}

// Import validates and stores every item of batch. Invalid items and chunks
// that still fail after retrying are counted as failed; only an empty batch
// is an error.
func (im *Importer) Import(ctx context.Context, batch *Batch) (*Result, error) {
	if batch == nil || len(batch.Items) == 0 {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidInput, ErrEmptyBatch)
	}
	addedBy := strings.TrimSpace(batch.AddedBy)
	if addedBy == "" {
		addedBy = DefaultAddedBy
	}

	var tracker *ProgressTracker
	if im.progress != nil {
		tracker = NewProgressTracker(im.progress, len(batch.Items), im.reportInterval)
		tracker.Start()
		defer tracker.Finish()
	}

	result := &Result{}
	chunk := make([]*core.ManualRecord, 0, im.batchSize)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		n := len(chunk)
		err := retryWithBackoff(ctx, im.logger, func() error {
			_, err := im.repo.AddManualRecords(ctx, chunk...)
			return err
		}, im.maxRetries, im.retryDelay)
		chunk = chunk[:0]
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			im.logger.Error("chunk write failed", "records", n, "err", err)
			result.Failed += n
			if tracker != nil {
				tracker.Add(0, n)
			}
			return nil
		}
		result.Imported += n
		if tracker != nil {
			tracker.Add(n, 0)
		}
		return nil
	}

	for i, item := range batch.Items {
		record, err := item.record(addedBy)
		if err != nil {
			im.logger.Debug("skipping item", "index", i, "err", err)
			result.Failed++
			if tracker != nil {
				tracker.Add(0, 1)
			}
			continue
		}
		chunk = append(chunk, record)
		if len(chunk) == im.batchSize {
			if err := flush(); err != nil {
				return result, err
			}
		}
	}
	if err := flush(); err != nil {
		return result, err
	}

	im.logger.Info("batch imported", "imported", result.Imported, "failed", result.Failed)
	return result, nil
}
