// Package archive keeps a copy of every fetched discovery page in a blob store.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
)

const contentType = "text/html; charset=utf-8"

// Config holds the archive collaborators. A nil Store disables archiving.
type Config struct {
	Store    crawler.BlobStore
	Hasher   crawler.Hasher
	Clock    crawler.Clock
	Location *time.Location
	Prefix   string
}

// Archiver writes page bodies under <prefix>/<YYYY-MM-DD>/<sha256(url)>.html.
type Archiver struct {
	cfg    Config
	logger *zap.Logger
}

// New builds an Archiver.
func New(cfg Config, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Archiver{cfg: cfg, logger: logger.Named("archive")}
}

// Enabled reports whether pages are written anywhere.
func (a *Archiver) Enabled() bool {
	return a != nil && a.cfg.Store != nil && a.cfg.Hasher != nil && a.cfg.Clock != nil
}

// Key returns the object path for a page fetched now.
func (a *Archiver) Key(rawURL string) string {
	day := a.cfg.Clock.Now().In(a.cfg.Location).Format(time.DateOnly)
	hash := a.cfg.Hasher.HashURL(rawURL)
	prefix := strings.Trim(a.cfg.Prefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.html", day, hash)
	}
	return fmt.Sprintf("%s/%s/%s.html", prefix, day, hash)
}

// Save stores body and returns the blob URI, or "" when nothing was written. Failures are
// logged, never returned.
func (a *Archiver) Save(ctx context.Context, rawURL string, body []byte) string {
	if !a.Enabled() || len(body) == 0 {
		return ""
	}
	key := a.Key(rawURL)
	uri, err := a.cfg.Store.PutObject(ctx, key, contentType, bytes.NewReader(body))
	if err != nil {
		a.logger.Warn("archive page failed", zap.String("url", rawURL), zap.String("key", key), zap.Error(err))
		return ""
	}
	a.logger.Debug("page archived", zap.String("url", rawURL), zap.String("uri", uri))
	return uri
}
