// File: /models/event.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type Event struct {
	ID            string      `json:"id" gorm:"primaryKey;size:191"`
	Title         string      `json:"title" gorm:"not null;size:255"`
	Description   string      `json:"description" gorm:"type:text"`
	LocationName  string      `json:"location_name" gorm:"size:255"`
	Address       string      `json:"address" gorm:"size:500"`
	City          string      `json:"city" gorm:"size:100;index"`
	Region        string      `json:"region" gorm:"size:100"`
	Date          string      `json:"date" gorm:"not null;size:10;index"` // YYYY-MM-DD, regional time zone
	Times         string      `json:"times" gorm:"size:100"`              // free-form time-of-day range
	Latitude      *float64    `json:"latitude"`
	Longitude     *float64    `json:"longitude"`
	Cost          string      `json:"cost" gorm:"size:100"`
	Categories    StringSlice `json:"categories" gorm:"type:json"`
	Recurrence    string      `json:"recurrence" gorm:"size:255"` // RRULE string, empty when one-off
	RecurrenceEnd string      `json:"recurrence_end" gorm:"size:10"`
	ImageURL      string      `json:"image_url" gorm:"size:500"`
	URL           string      `json:"url" gorm:"size:500"`
	CreatorID     string      `json:"creator_id" gorm:"not null;size:191;index"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`

	Creator User `json:"creator" gorm:"foreignKey:CreatorID"`
}

// HasCoordinate reports whether the event can take part in spatial
// operations. Events without a coordinate never appear in clustering,
// proximity ranking or route planning.
func (e *Event) HasCoordinate() bool {
	return e.Latitude != nil && e.Longitude != nil
}

func (e *Event) Coordinate() Coordinate {
	if !e.HasCoordinate() {
		return Coordinate{}
	}
	return Coordinate{Latitude: *e.Latitude, Longitude: *e.Longitude}
}

// Occurrence is a materialized instance of a recurring event on a
// concrete calendar day.
type Occurrence struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	EventID string `json:"event_id" gorm:"not null;size:191;index"`
	Date    string `json:"date" gorm:"not null;size:10;index"`

	Event Event `json:"event" gorm:"foreignKey:EventID"`
}

// Custom types for JSON handling
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, s)
}
