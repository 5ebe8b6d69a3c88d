// File: /services/ical_service.go
package services

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"trianglecal-api/models"
)

// ICalService renders event lists as an iCalendar feed so visitors can
// subscribe from their own calendar apps.
type ICalService struct {
	location *time.Location
	prodID   string
}

func NewICalService(timeZone string) (*ICalService, error) {
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", timeZone, err)
	}
	return &ICalService{location: loc, prodID: "-//TriangleCal//Community Calendar//EN"}, nil
}

// BuildFeed serializes the given events as an all-day VEVENT feed.
// Events without a parseable date are skipped.
func (is *ICalService) BuildFeed(events []models.Event) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(is.prodID)

	for _, ev := range events {
		date, ok := NormalizeDate(ev.Date)
		if !ok {
			continue
		}
		start, err := time.ParseInLocation("2006-01-02", date, is.location)
		if err != nil {
			continue
		}

		item := cal.AddEvent(ev.ID + "@trianglecal")
		item.SetAllDayStartAt(start)
		item.SetAllDayEndAt(start.Add(24 * time.Hour))
		item.SetSummary(ev.Title)
		item.SetDtStampTime(time.Now())
		if ev.Description != "" {
			item.SetDescription(ev.Description)
		}
		if ev.LocationName != "" {
			item.SetLocation(ev.LocationName)
		}
		if ev.URL != "" {
			item.SetURL(ev.URL)
		}
		if ev.HasCoordinate() {
			item.SetGeo(*ev.Latitude, *ev.Longitude)
		}
	}

	return cal.Serialize()
}
