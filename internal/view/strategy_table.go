package view

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/backtest-vault/internal/codec"
	"github.com/yourusername/backtest-vault/internal/models"
)

// FileKind selects one file of a bundle.
type FileKind string

// Bundle file kinds
const (
	KindEx FileKind = "ex"
	KindMq FileKind = "mq"
)

// ParseFileKind accepts ex/ex5/mq/mq5.
func ParseFileKind(s string) (FileKind, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "ex", "ex5":
		return KindEx, nil
	case "mq", "mq5":
		return KindMq, nil
	}
	return "", fmt.Errorf("unknown file kind %q (want ex or mq)", s)
}

// Extension returns the download extension for the kind.
func (k FileKind) Extension() string {
	if k == KindMq {
		return ".mq5"
	}
	return ".ex5"
}

// StrategySource is the part of the API client the bundle table needs.
type StrategySource interface {
	ListStrategies(ctx context.Context) ([]*models.StrategyFileBundle, error)
	DeleteStrategy(ctx context.Context, id int64) error
}

// StrategyFilesTable is the strategy bundle view. Rows keep server order.
type StrategyFilesTable struct {
	mu      sync.Mutex
	src     StrategySource
	bundles []*models.StrategyFileBundle
	cache   *AttachmentCache
	logger  *logrus.Entry
	gen     uint64
}

// NewStrategyFilesTable creates an empty table.
func NewStrategyFilesTable(src StrategySource, cache *AttachmentCache, logger *logrus.Logger) *StrategyFilesTable {
	if cache == nil {
		cache = NewAttachmentCache(DefaultCacheTTL)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &StrategyFilesTable{
		src:    src,
		cache:  cache,
		logger: logger.WithField("component", "strategy_table"),
	}
}

// Refresh refetches every bundle, replacing local state on success.
func (t *StrategyFilesTable) Refresh(ctx context.Context) error {
	bundles, err := t.src.ListStrategies(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch strategies: %w", err)
	}
	t.mu.Lock()
	t.bundles = bundles
	t.gen++
	t.cache.Clear()
	t.mu.Unlock()
	return nil
}

// Rows returns a copy of the fetched bundles.
func (t *StrategyFilesTable) Rows() []*models.StrategyFileBundle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*models.StrategyFileBundle(nil), t.bundles...)
}

func (t *StrategyFilesTable) row(id int64) (*models.StrategyFileBundle, uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, b := range t.bundles {
		if b.ID == id {
			return b, t.gen, nil
		}
	}
	return nil, 0, ErrRowNotFound
}

// Download decodes one file of bundle id.
func (t *StrategyFilesTable) Download(id int64, kind FileKind) (*Attachment, error) {
	b, gen, err := t.row(id)
	if err != nil {
		return nil, err
	}

	field, text := "strategy_ex_file", b.StrategyExFile
	if kind == KindMq {
		field, text = "strategy_mq_file", b.StrategyMqFile
	}
	if text == "" {
		return nil, ErrNoAttachment
	}

	key := attachmentKey{Table: "strategies", Gen: gen, ID: id, Field: field}
	data, ok := t.cache.Get(key)
	if !ok {
		data, err = codec.DecodeField(field, text)
		if err != nil {
			return nil, err
		}
		t.cache.Set(key, data)
	}
	return &Attachment{
		Name:      BundleFileName(b, kind),
		MediaType: "application/octet-stream",
		Data:      data,
	}, nil
}

// Delete asks the server to delete id and drops the row on success only.
func (t *StrategyFilesTable) Delete(ctx context.Context, id int64) error {
	if _, _, err := t.row(id); err != nil {
		return err
	}
	if err := t.src.DeleteStrategy(ctx, id); err != nil {
		return fmt.Errorf("failed to delete strategy %d: %w", id, err)
	}

	t.mu.Lock()
	kept := t.bundles[:0:0]
	for _, b := range t.bundles {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	t.bundles = kept
	gen := t.gen
	t.mu.Unlock()

	t.cache.Delete(attachmentKey{Table: "strategies", Gen: gen, ID: id, Field: "strategy_ex_file"})
	t.cache.Delete(attachmentKey{Table: "strategies", Gen: gen, ID: id, Field: "strategy_mq_file"})
	t.logger.WithField("id", id).Debug("Strategy bundle removed")
	return nil
}
