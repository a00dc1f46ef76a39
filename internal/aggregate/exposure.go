package aggregate

import (
	"time"

	"github.com/dharsanguruparan/StreetPass/internal/model"
)

// ExposureFilter selects the stored summaries that count as a notifiable
// exposure to one device.
type ExposureFilter struct {
	// MinContact is the shortest accumulated exposure reported.
	MinContact time.Duration
	// MaxAge bounds how long after the temp ID expired a summary is reported.
	MaxAge time.Duration
}

// DefaultExposureFilter reports 15 minutes of contact within the last 15 days.
var DefaultExposureFilter = ExposureFilter{
	MinContact: 15 * time.Minute,
	MaxAge:     15 * 24 * time.Hour,
}

// Exposures returns the summaries whose contact is uid and that pass f at now.
func (f ExposureFilter) Exposures(summaries []model.ContactSummary, uid string, now time.Time) []model.ContactSummary {
	minContact := int64(f.MinContact / time.Second)
	maxAge := int64(f.MaxAge / time.Second)
	out := []model.ContactSummary{}
	for _, s := range summaries {
		if s.Record.ContactID != uid || s.ContactTime < minContact {
			continue
		}
		if now.Unix()-s.Record.ContactIDValidTo > maxAge {
			continue
		}
		out = append(out, s)
	}
	return out
}
