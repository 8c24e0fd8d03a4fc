// Package view holds the client-side table state: the fetched collection,
// local filters and sort, and row actions.
package view

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/backtest-vault/internal/codec"
	"github.com/yourusername/backtest-vault/internal/models"
)

// ErrRowNotFound is returned for actions on an id not in the local collection.
var ErrRowNotFound = errors.New("row not in table")

// BacktestSource is the part of the API client the backtest table needs.
type BacktestSource interface {
	ListBacktests(ctx context.Context) ([]*models.BacktestRecord, error)
	DeleteBacktest(ctx context.Context, id int64) error
}

// Attachment is a decoded file ready to be saved or displayed.
type Attachment struct {
	Name      string
	MediaType string
	Data      []byte
}

// BacktestTable is the backtest results view.
type BacktestTable struct {
	mu      sync.Mutex
	src     BacktestSource
	records []*models.BacktestRecord
	filters Filters
	sortKey SortKey
	desc    bool
	cache   *AttachmentCache
	logger  *logrus.Entry

	// gen advances on every refresh. Cache keys carry it, so bytes decoded
	// from a superseded collection are never served.
	gen uint64
}

// NewBacktestTable creates an empty table. Call Refresh to load it.
func NewBacktestTable(src BacktestSource, cache *AttachmentCache, logger *logrus.Logger) *BacktestTable {
	if cache == nil {
		cache = NewAttachmentCache(DefaultCacheTTL)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BacktestTable{
		src:    src,
		cache:  cache,
		logger: logger.WithField("component", "backtest_table"),
	}
}

// Refresh refetches the collection and replaces local state wholesale. On
// error the current rows are kept. Overlapping refreshes apply in completion
// order, so the last response wins.
func (t *BacktestTable) Refresh(ctx context.Context) error {
	records, err := t.src.ListBacktests(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch backtests: %w", err)
	}

	t.mu.Lock()
	t.records = records
	t.gen++
	t.cache.Clear()
	t.mu.Unlock()

	t.logger.WithField("rows", len(records)).Debug("Backtests refreshed")
	return nil
}

// SetFilters replaces all three filters.
func (t *BacktestTable) SetFilters(f Filters) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.filters = f
}

// Filters returns the active filters.
func (t *BacktestTable) Filters() Filters {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.filters
}

// ToggleSort selects key ascending, or flips the direction when key is
// already active.
func (t *BacktestTable) ToggleSort(key SortKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sortKey == key {
		t.desc = !t.desc
		return
	}
	t.sortKey = key
	t.desc = false
}

// SetSort sets key and direction directly.
func (t *BacktestTable) SetSort(key SortKey, desc bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sortKey = key
	t.desc = desc
}

// Sort returns the active key and direction.
func (t *BacktestTable) Sort() (SortKey, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sortKey, t.desc
}

// Len returns the size of the fetched collection, before filtering.
func (t *BacktestTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Visible returns the filtered, sorted rows.
func (t *BacktestTable) Visible() []*models.BacktestRecord {
	t.mu.Lock()
	rows := filterRecords(t.records, t.filters)
	key, desc := t.sortKey, t.desc
	t.mu.Unlock()

	sortRecords(rows, key, desc)
	return rows
}

// Row looks up a fetched record by id.
func (t *BacktestTable) Row(id int64) (*models.BacktestRecord, error) {
	r, _, err := t.row(id)
	return r, err
}

// row returns the record together with the generation it was fetched in.
func (t *BacktestTable) row(id int64) (*models.BacktestRecord, uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.records {
		if r.ID == id {
			return r, t.gen, nil
		}
	}
	return nil, 0, ErrRowNotFound
}

// Delete asks the server to delete id and removes the row only on success.
func (t *BacktestTable) Delete(ctx context.Context, id int64) error {
	if _, err := t.Row(id); err != nil {
		return err
	}
	if err := t.src.DeleteBacktest(ctx, id); err != nil {
		return fmt.Errorf("failed to delete backtest %d: %w", id, err)
	}

	t.mu.Lock()
	kept := t.records[:0:0]
	for _, r := range t.records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	t.records = kept
	gen := t.gen
	t.mu.Unlock()

	t.cache.Delete(attachmentKey{Table: "backtest", Gen: gen, ID: id, Field: "set_file"})
	t.cache.Delete(attachmentKey{Table: "backtest", Gen: gen, ID: id, Field: "capital_curve"})
	return nil
}

// SetFile decodes the row's parameter set for download.
func (t *BacktestTable) SetFile(id int64) (*Attachment, error) {
	r, gen, err := t.row(id)
	if err != nil {
		return nil, err
	}
	data, err := t.decode(gen, id, "set_file", r.SetFile)
	if err != nil {
		return nil, err
	}
	return &Attachment{
		Name:      SetFileName(r),
		MediaType: "application/octet-stream",
		Data:      data,
	}, nil
}

// CapitalCurve decodes the row's capital-curve image for preview.
func (t *BacktestTable) CapitalCurve(id int64) (*Attachment, error) {
	r, gen, err := t.row(id)
	if err != nil {
		return nil, err
	}
	data, err := t.decode(gen, id, "capital_curve", r.CapitalCurve)
	if err != nil {
		return nil, err
	}
	mediaType := codec.MediaType(r.CapitalCurve)
	if mediaType == "" {
		mediaType = codec.DetectMediaType(data)
	}
	return &Attachment{
		Name:      CapitalCurveName(r, data),
		MediaType: mediaType,
		Data:      data,
	}, nil
}

// ErrNoAttachment is returned when the requested attachment is empty.
var ErrNoAttachment = errors.New("no attachment stored")

func (t *BacktestTable) decode(gen uint64, id int64, field, text string) ([]byte, error) {
	if text == "" {
		return nil, ErrNoAttachment
	}
	key := attachmentKey{Table: "backtest", Gen: gen, ID: id, Field: field}
	if b, ok := t.cache.Get(key); ok {
		return b, nil
	}
	b, err := codec.DecodeField(field, text)
	if err != nil {
		return nil, err
	}
	t.cache.Set(key, b)
	return b, nil
}

// Watch refreshes once per signal until ctx ends or signals closes. Refresh
// failures are logged and leave the table as it was. onRefresh, if set, runs
// after every successful refresh.
func (t *BacktestTable) Watch(ctx context.Context, signals <-chan struct{}, onRefresh func()) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-signals:
			if !ok {
				return nil
			}
			if err := t.Refresh(ctx); err != nil {
				t.logger.WithError(err).Warn("Refresh failed")
				continue
			}
			if onRefresh != nil {
				onRefresh()
			}
		}
	}
}
