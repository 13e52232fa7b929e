package engine

import (
	"context"
	"log/slog"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// MissingNames returns the names in requested that are not keys of available, sorted and
// without duplicates
func MissingNames[V any](available map[string]V, requested []string) []string {
	missing := make(map[string]struct{})
	for _, name := range requested {
		if _, ok := available[name]; !ok {
			missing[name] = struct{}{}
		}
	}

	names := maps.Keys(missing)
	slices.Sort(names)
	return names
}

// reportMissing logs every requested name that is not available. It never fails; the caller
// decides what a missing name means.
func reportMissing[V any](logger *slog.Logger, kind string, available map[string]V, requested []string) []string {
	missing := MissingNames(available, requested)
	if len(missing) == 0 {
		return nil
	}

	availableNames := maps.Keys(available)
	slices.Sort(availableNames)

	for _, name := range missing {
		logger.LogAttrs(context.Background(), slog.LevelWarn, "unavailable "+kind,
			slog.String("name", name),
		)
	}
	logger.LogAttrs(context.Background(), slog.LevelDebug, "available "+kind+"s",
		slog.Any("names", availableNames),
	)

	return missing
}
