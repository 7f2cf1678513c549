// Package doccache keeps parsed note documents keyed by the checksum of
// their serialized content, so that graph builds and renders do not parse
// unchanged notes again.
package doccache

import (
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/notegraph/internal/checksum"
	"github.com/starford/notegraph/internal/document"
	"github.com/starford/notegraph/internal/models"
)

// DefaultSize is the number of documents kept when no size is configured.
const DefaultSize = 1024

// Cache is safe for concurrent use. Cached documents are shared and must
// not be modified; edits go through Document.Replace, which copies.
type Cache struct {
	docs   *lru.Cache[string, *document.Document]
	logger *slog.Logger
}

// New returns a cache holding up to size documents.
func New(size int, logger *slog.Logger) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	docs, err := lru.New[string, *document.Document](size)
	if err != nil {
		// Only returned for a non-positive size.
		panic(err)
	}
	return &Cache{docs: docs, logger: logger}
}

// Tree returns the parsed content of n. Malformed content yields an empty
// document and a warning.
func (c *Cache) Tree(n *models.Note) *document.Document {
	key := n.Checksum
	if key == "" {
		key = checksum.Sum([]byte(n.Content))
	}
	if d, ok := c.docs.Get(key); ok {
		return d
	}
	d := document.ParseOrDefault(n.Content, c.logger.With(slog.String("note", n.ID)))
	c.docs.Add(key, d)
	return d
}

// Len returns the number of cached documents.
func (c *Cache) Len() int { return c.docs.Len() }

// Purge drops every cached document.
func (c *Cache) Purge() { c.docs.Purge() }
