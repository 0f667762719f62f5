package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/pageza/cookistry/backend/internal/metrics"
	"github.com/pageza/cookistry/backend/internal/models"
	"github.com/pageza/cookistry/backend/internal/recipestore"
	"github.com/pageza/cookistry/backend/internal/requestctx"
	"github.com/pageza/cookistry/backend/pkg/logger"
)

// DefaultMaxBytes caps the size of an uploaded batch file.
const DefaultMaxBytes int64 = 10 << 20

// Fatal import errors. Any of these aborts the batch with nothing written.
var (
	ErrFileTooLarge    = errors.New("file exceeds the maximum upload size")
	ErrInvalidFileType = errors.New("only .csv files are accepted")
	ErrUnreadable      = errors.New("could not read CSV data")
	ErrEmptyFile       = errors.New("CSV file is empty")
	ErrNoKnownHeaders  = errors.New("no recognized column headers")
	ErrBatchAborted    = errors.New("import aborted, no changes were saved")
)

// Report is the aggregate outcome of a successful batch.
type Report struct {
	Success         bool     `json:"success"`
	TotalRows       int      `json:"total_rows"`
	Imported        int      `json:"imported"`
	Updated         int      `json:"updated"`
	Skipped         int      `json:"skipped"`
	Errors          []string `json:"errors"`
	ErrorsTruncated bool     `json:"errors_truncated,omitempty"`
}

func (r *Report) skip(err *RowError) {
	r.Skipped++
	r.Errors = append(r.Errors, err.Error())
}

// Capped returns a copy of the report whose error list holds at most n
// messages.
func (r Report) Capped(n int) Report {
	if n > 0 && len(r.Errors) > n {
		r.Errors = r.Errors[:n]
		r.ErrorsTruncated = true
	}
	return r
}

// Failure is the payload for a batch that failed as a whole.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewFailure wraps a fatal import error for the response body.
func NewFailure(err error) Failure {
	return Failure{Success: false, Error: err.Error()}
}

type outcome int

const (
	outcomeImported outcome = iota + 1
	outcomeUpdated
)

// Importer loads recipe batches from CSV into a recipe store.
type Importer struct {
	store    recipestore.Store
	log      *logger.Logger
	metrics  *metrics.Metrics
	maxBytes int64
	now      func() time.Time
}

// Option configures an Importer.
type Option func(*Importer)

// WithMaxBytes sets the upload size limit. Non-positive values keep the default.
func WithMaxBytes(n int64) Option {
	return func(im *Importer) {
		if n > 0 {
			im.maxBytes = n
		}
	}
}

// WithMetrics records batch and row outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(im *Importer) { im.metrics = m }
}

// WithClock overrides the time used for missing or invalid timestamps.
func WithClock(now func() time.Time) Option {
	return func(im *Importer) { im.now = now }
}

// New returns an Importer writing to store with a DefaultMaxBytes limit.
func New(store recipestore.Store, log *logger.Logger, opts ...Option) *Importer {
	im := &Importer{
		store:    store,
		log:      log.WithComponent("importer"),
		maxBytes: DefaultMaxBytes,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// ImportUpload checks the upload's name and declared size before importing.
func (im *Importer) ImportUpload(ctx context.Context, filename string, size int64, r io.Reader) (*Report, error) {
	start := time.Now()
	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		return nil, im.finish(ctx, nil, ErrInvalidFileType, start)
	}
	if size > im.maxBytes {
		return nil, im.finish(ctx, nil, ErrFileTooLarge, start)
	}
	report, err := im.run(ctx, r)
	return report, im.finish(ctx, report, err, start)
}

// Import reads a CSV batch from r and writes every valid row inside one
// transaction. Row-level problems are collected in the report; anything else
// rolls the whole batch back and is returned as an error.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Report, error) {
	start := time.Now()
	report, err := im.run(ctx, r)
	return report, im.finish(ctx, report, err, start)
}

func (im *Importer) finish(ctx context.Context, report *Report, err error, start time.Time) error {
	im.metrics.ObserveImport(report.counts(), err, time.Since(start))

	log := requestctx.LoggerFrom(ctx, im.log)
	if caller, ok := requestctx.CallerFrom(ctx); ok {
		log = log.With("caller", caller.String())
	}
	if err != nil {
		log.Error("Recipe import failed", "error", err)
		return err
	}
	log.Info("Recipe import finished",
		"total_rows", report.TotalRows,
		"imported", report.Imported,
		"updated", report.Updated,
		"skipped", report.Skipped,
	)
	return nil
}

func (r *Report) counts() metrics.ImportCounts {
	if r == nil {
		return metrics.ImportCounts{}
	}
	return metrics.ImportCounts{Imported: r.Imported, Updated: r.Updated, Skipped: r.Skipped}
}

func (im *Importer) run(ctx context.Context, r io.Reader) (*Report, error) {
	data, err := io.ReadAll(io.LimitReader(r, im.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if int64(len(data)) > im.maxBytes {
		return nil, ErrFileTooLarge
	}

	header, rows, err := readRecords(data)
	if err != nil {
		return nil, err
	}

	headers := resolveHeaders(header)
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: expected one or more of: %s", ErrNoKnownHeaders, strings.Join(CanonicalFields, ", "))
	}

	report := &Report{Success: true, TotalRows: len(rows), Errors: []string{}}
	now := im.now()

	err = im.store.Transaction(ctx, func(tx recipestore.Store) error {
		for i, record := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			row := i + 1
			if blankRecord(record) {
				report.Skipped++
				continue
			}

			result, rowErr, err := im.processRow(ctx, tx, row, headers.project(record), now)
			if err != nil {
				return fmt.Errorf("row %d: %w", row, err)
			}
			if rowErr != nil {
				report.skip(rowErr)
				continue
			}
			if result == outcomeUpdated {
				report.Updated++
			} else {
				report.Imported++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBatchAborted, err)
	}
	return report, nil
}

// readRecords splits data into the header and the data rows. encoding/csv
// drops empty lines, so each one is put back as a nil record; row numbers
// then match the file. Empty lines after the last record are ignored.
func readRecords(data []byte) ([]string, [][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	offset := reader.InputOffset()
	consumed := bytes.Count(data[:offset], newline)
	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return header, rows, nil
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}

		line, _ := reader.FieldPos(0)
		for blank := consumed + 1; blank < line; blank++ {
			rows = append(rows, nil)
		}
		rows = append(rows, record)

		next := reader.InputOffset()
		consumed += bytes.Count(data[offset:next], newline)
		offset = next
	}
}

var newline = []byte{'\n'}

// processRow returns a RowError for problems confined to the row and a plain
// error for failures that must abort the batch.
func (im *Importer) processRow(ctx context.Context, tx recipestore.Store, row int, bag FieldBag, now time.Time) (outcome, *RowError, error) {
	recipe, rowErr := normalize(row, bag, now)
	if rowErr != nil {
		return 0, rowErr, nil
	}

	base := recipestore.Slugify(bag.get(FieldSlug))
	if base == "" {
		base = recipestore.Slugify(bag.get(FieldTitle))
	}
	if base == "" {
		base = recipestore.FallbackSlug()
	}
	slug, err := recipestore.UniqueSlug(ctx, tx, base, recipe.ID)
	if err != nil {
		return 0, nil, err
	}
	recipe.Slug = slug

	// Each write gets a savepoint so a rejected row does not poison the
	// enclosing transaction.
	var result outcome
	err = tx.Transaction(ctx, func(rowTx recipestore.Store) error {
		var err error
		result, err = reconcile(ctx, rowTx, recipe)
		return err
	})
	if err != nil {
		if errors.Is(err, recipestore.ErrConstraint) {
			return 0, &RowError{Row: row, Field: "recipe", Reason: "could not be saved: " + err.Error()}, nil
		}
		return 0, nil, err
	}
	return result, nil, nil
}

// reconcile updates the recipe when its id already exists and inserts it
// otherwise.
func reconcile(ctx context.Context, tx recipestore.Store, r *models.Recipe) (outcome, error) {
	if r.ID != 0 {
		_, err := tx.FindByID(ctx, r.ID)
		switch {
		case err == nil:
			ok, err := tx.Update(ctx, r.ID, r)
			if err != nil {
				return 0, err
			}
			if !ok {
				return 0, fmt.Errorf("recipe %d disappeared during update", r.ID)
			}
			return outcomeUpdated, nil
		case !errors.Is(err, recipestore.ErrNotFound):
			return 0, err
		}
	}

	if _, err := tx.Insert(ctx, r); err != nil {
		return 0, err
	}
	return outcomeImported, nil
}
