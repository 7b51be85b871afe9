package domain

import (
	"context"
	"log/slog"
	"strings"
)

// BuildChoropleth joins defined CFR values to region boundaries. Regions named
// in excluded (case-insensitive) are dropped. If resolver is nil or a lookup
// fails, the entry is kept without a boundary (graceful degradation).
func BuildChoropleth(ctx context.Context, cfr CFRResult, resolver BoundaryResolver, excluded []string, logger *slog.Logger) []ChoroplethEntry {
	skip := make(map[string]struct{}, len(excluded))
	for _, name := range excluded {
		skip[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}

	out := make([]ChoroplethEntry, 0, len(cfr.Defined))
	for _, rc := range cfr.Defined {
		if _, ok := skip[strings.ToLower(rc.Region)]; ok {
			continue
		}
		entry := ChoroplethEntry{Region: rc.Region, CFR: rc.CFR}
		if resolver != nil {
			b, err := resolver.Boundary(ctx, rc.Region)
			if err != nil {
				logger.Warn("boundary lookup failed",
					"region", rc.Region,
					"error", err,
				)
			} else {
				entry.Boundary = b
			}
		}
		out = append(out, entry)
	}
	return out
}
