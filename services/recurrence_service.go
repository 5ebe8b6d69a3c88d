// File: /services/recurrence_service.go
package services

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"trianglecal-api/models"
)

// maxOccurrencesPerEvent caps expansion so a malformed rule cannot
// produce an unbounded series.
const maxOccurrencesPerEvent = 366

// RecurrenceService expands events carrying an RRULE descriptor into
// concrete dated occurrences, interpreted in the fixed regional time
// zone.
type RecurrenceService struct {
	location *time.Location
}

func NewRecurrenceService(timeZone string) (*RecurrenceService, error) {
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", timeZone, err)
	}
	return &RecurrenceService{location: loc}, nil
}

// Expand materializes occurrences of a recurring event within
// [from, to], inclusive, excluding the event's own base date. One-off
// events yield nothing.
func (rs *RecurrenceService) Expand(event models.Event, from, to time.Time) ([]models.Occurrence, error) {
	if event.Recurrence == "" {
		return nil, nil
	}

	base, err := time.ParseInLocation("2006-01-02", event.Date, rs.location)
	if err != nil {
		return nil, fmt.Errorf("event %s has unparseable date %q", event.ID, event.Date)
	}

	rule, err := rrule.StrToRRule(event.Recurrence)
	if err != nil {
		return nil, fmt.Errorf("event %s has invalid recurrence rule: %w", event.ID, err)
	}

	opts := rule.OrigOptions
	opts.Dtstart = base
	if event.RecurrenceEnd != "" {
		if until, err := time.ParseInLocation("2006-01-02", event.RecurrenceEnd, rs.location); err == nil {
			// End of the final day, so the last occurrence is included.
			opts.Until = until.Add(24*time.Hour - time.Second)
		}
	}

	rule, err = rrule.NewRRule(opts)
	if err != nil {
		return nil, fmt.Errorf("event %s recurrence rebuild failed: %w", event.ID, err)
	}

	times := rule.Between(from, to, true)
	occurrences := make([]models.Occurrence, 0, len(times))
	for i, t := range times {
		if i >= maxOccurrencesPerEvent {
			break
		}
		date := t.In(rs.location).Format("2006-01-02")
		if date == event.Date {
			continue
		}
		occurrences = append(occurrences, models.Occurrence{
			EventID: event.ID,
			Date:    date,
		})
	}
	return occurrences, nil
}

// ExpandAll materializes occurrences for every recurring event in the
// list. Events whose rules fail to parse are skipped; the rest of the
// batch still expands.
func (rs *RecurrenceService) ExpandAll(events []models.Event, from, to time.Time) []models.Occurrence {
	all := make([]models.Occurrence, 0)
	for _, ev := range events {
		occs, err := rs.Expand(ev, from, to)
		if err != nil {
			continue
		}
		all = append(all, occs...)
	}
	return all
}
