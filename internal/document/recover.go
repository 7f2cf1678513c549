package document

import (
	"log/slog"
	"strings"

	"github.com/starford/notegraph/internal/checksum"
)

// ParseOrDefault parses content and falls back to Empty when content is
// blank or malformed. Malformed payloads are reported on logger with their
// checksum so the stored value can be located and repaired.
func ParseOrDefault(content string, logger *slog.Logger) *Document {
	if strings.TrimSpace(content) == "" {
		return Empty()
	}
	d, err := Parse([]byte(content))
	if err != nil {
		if logger != nil {
			logger.Warn("unreadable note content, using empty document",
				slog.String("checksum", checksum.Sum([]byte(content))),
				slog.Int("bytes", len(content)),
				slog.String("error", err.Error()))
		}
		return Empty()
	}
	return d
}
