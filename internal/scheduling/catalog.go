package scheduling

import (
	"encoding/json"
	"strings"

	"github.com/amaraspa/scheduling-platform/pkg/logging"
)

// defaultDurations covers the standard service menu. Overridable via
// SERVICE_DURATIONS_JSON without a redeploy.
var defaultDurations = map[string]int{
	"consultation":     30,
	"facial":           60,
	"deep tissue":      90,
	"swedish massage":  60,
	"hot stone":        75,
	"manicure":         45,
	"pedicure":         60,
	"body scrub":       45,
	"laser session":    30,
	"waxing":           30,
	"hair treatment":   90,
	"makeup":           60,
	"bridal package":   180,
	"steam bath":       45,
	"hydrafacial":      75,
	"microneedling":    60,
	"chemical peel":    45,
	"massage":          60,
	"full body polish": 120,
}

// Catalog resolves service names to durations. It is static configuration
// seeded at startup, not a stored entity.
type Catalog struct {
	durations      map[string]int
	defaultMinutes int
}

// NewCatalog builds a catalog from an optional JSON override of the form
// {"facial": 60, ...}. Unknown or malformed JSON falls back to the built-in
// menu.
func NewCatalog(durationsJSON string, defaultMinutes int, logger *logging.Logger) *Catalog {
	if logger == nil {
		logger = logging.Default()
	}
	if defaultMinutes <= 0 {
		defaultMinutes = 60
	}

	durations := make(map[string]int, len(defaultDurations))
	for name, minutes := range defaultDurations {
		durations[name] = minutes
	}

	if strings.TrimSpace(durationsJSON) != "" {
		var overrides map[string]int
		if err := json.Unmarshal([]byte(durationsJSON), &overrides); err != nil {
			logger.Warn("catalog: ignoring malformed SERVICE_DURATIONS_JSON", "error", err)
		} else {
			for name, minutes := range overrides {
				if minutes > 0 {
					durations[normalizeServiceName(name)] = minutes
				}
			}
		}
	}

	return &Catalog{durations: durations, defaultMinutes: defaultMinutes}
}

// DurationOf returns the duration in minutes for a service name, falling
// back to the catalog default for unknown names.
func (c *Catalog) DurationOf(service string) int {
	if minutes, ok := c.durations[normalizeServiceName(service)]; ok {
		return minutes
	}
	return c.defaultMinutes
}

// TotalDuration sums the durations of a multi-service booking.
func (c *Catalog) TotalDuration(services []string) int {
	total := 0
	for _, s := range services {
		total += c.DurationOf(s)
	}
	return total
}

func normalizeServiceName(service string) string {
	return strings.ToLower(strings.TrimSpace(service))
}
