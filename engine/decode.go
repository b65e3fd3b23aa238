package engine

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/jnarowski/agentcmd"
	"github.com/jnarowski/agentcmd/internal/logger"
	"github.com/jnarowski/agentcmd/internal/metrics"
)

// decodeStream reads newline-delimited protocol records, forwarding each
// parsed record in emission order. Malformed lines are counted and skipped:
// one bad record must not discard an otherwise healthy stream. The returned
// error reports stream-level failures only (read errors, oversized lines).
func decodeStream(parser agentcmd.LineParser, r io.Reader, provider agentcmd.Provider, onRecord func(agentcmd.Record)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	for scanner.Scan() {
		rec, err := parser.ParseLine(scanner.Bytes())
		if errors.Is(err, agentcmd.ErrSkipRecord) {
			continue
		}
		if err != nil {
			metrics.DecodeErrors.WithLabelValues(string(provider)).Inc()
			logger.Slog().Debug("skipping malformed record", "provider", provider, "error", err)
			continue
		}
		onRecord(rec)
	}
	return scanner.Err()
}

// decodeDocument buffers the whole output and parses it once at close. An
// undecodable document degrades to a single raw text message rather than a
// failure: batch providers print diagnostics to stdout on some error paths
// and that text is still the run's output.
func decodeDocument(parser agentcmd.DocumentParser, r io.Reader, provider agentcmd.Provider, onRecord func(agentcmd.Record)) {
	doc, readErr := io.ReadAll(r)
	if readErr != nil {
		logger.Slog().Warn("reading agent output", "provider", provider, "error", readErr)
	}

	records, err := parser.ParseDocument(doc)
	if err != nil {
		metrics.DecodeErrors.WithLabelValues(string(provider)).Inc()
		logger.Slog().Debug("falling back to raw output", "provider", provider, "error", err)
		text := strings.TrimSpace(string(doc))
		if text == "" {
			return
		}
		onRecord(agentcmd.Record{Message: &agentcmd.UnifiedMessage{
			Role:      agentcmd.RoleAssistant,
			Content:   []agentcmd.ContentBlock{agentcmd.TextBlock(text)},
			Timestamp: time.Now().UnixMilli(),
			Provider:  provider,
		}})
		return
	}

	for _, rec := range records {
		onRecord(rec)
	}
}
