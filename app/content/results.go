package content

import (
	"errors"
	"log/slog"
)

// collect keeps the successful entries and logs the rest. Entries outside the
// window are expected and only show up at debug level.
func collect(source string, results []entryResult) []Item {
	items := make([]Item, 0, len(results))
	skipped := 0
	outside := 0

	for _, r := range results {
		switch {
		case r.err == nil:
			items = append(items, r.item)
		case errors.Is(r.err, ErrOutsideWindow):
			outside++
		default:
			skipped++
			slog.Warn("Entry skipped", "source", source, "error", r.err)
		}
	}

	slog.Info("Source collected",
		"source", source,
		"total", len(results),
		"kept", len(items),
		"outside_window", outside,
		"skipped", skipped)

	return items
}
