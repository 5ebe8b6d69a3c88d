// File: /repositories/event_repository.go
package repositories

import (
	"gorm.io/gorm"

	"trianglecal-api/models"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// ListParams narrows the event listing.
type ListParams struct {
	Date     string
	City     string
	Category string
	Search   string
	Page     int
	Limit    int
}

// List returns a page of events plus the unpaged total.
func (r *EventRepository) List(params ListParams) ([]models.Event, int64, error) {
	query := r.db.Model(&models.Event{})

	if params.Date != "" {
		query = query.Where("date = ?", params.Date)
	}
	if params.City != "" {
		query = query.Where("city = ?", params.City)
	}
	if params.Category != "" {
		query = query.Where("JSON_CONTAINS(categories, JSON_QUOTE(?))", params.Category)
	}
	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("title LIKE ? OR description LIKE ? OR location_name LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (params.Page - 1) * params.Limit
	var events []models.Event
	err := query.Order("date ASC, title ASC").Offset(offset).Limit(params.Limit).Find(&events).Error
	return events, total, err
}

// ByDate returns every event occurring on the given day, including
// materialized recurrence instances.
func (r *EventRepository) ByDate(date string) ([]models.Event, error) {
	var events []models.Event
	err := r.db.
		Where("date = ? OR id IN (?)", date,
			r.db.Model(&models.Occurrence{}).Select("event_id").Where("date = ?", date)).
		Order("title ASC").
		Find(&events).Error
	return events, err
}

func (r *EventRepository) Get(id string) (*models.Event, error) {
	var event models.Event
	if err := r.db.Preload("Creator").First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *EventRepository) Create(event *models.Event) error {
	return r.db.Create(event).Error
}

func (r *EventRepository) Update(event *models.Event, updates map[string]interface{}) error {
	return r.db.Model(event).Updates(updates).Error
}

func (r *EventRepository) Delete(event *models.Event) error {
	if err := r.db.Where("event_id = ?", event.ID).Delete(&models.Occurrence{}).Error; err != nil {
		return err
	}
	return r.db.Delete(event).Error
}

// BulkInsert writes a batch of imported events in one transaction.
func (r *EventRepository) BulkInsert(events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.CreateInBatches(events, 100).Error
}

// DeleteRange removes events dated within [from, to] inclusive, with
// their occurrences. Returns the number of events removed.
func (r *EventRepository) DeleteRange(from, to string) (int64, error) {
	var ids []string
	if err := r.db.Model(&models.Event{}).
		Where("date >= ? AND date <= ?", from, to).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := r.db.Where("event_id IN ?", ids).Delete(&models.Occurrence{}).Error; err != nil {
		return 0, err
	}
	result := r.db.Where("id IN ?", ids).Delete(&models.Event{})
	return result.RowsAffected, result.Error
}

// Recurring returns events carrying a recurrence rule, for the
// materialization job.
func (r *EventRepository) Recurring() ([]models.Event, error) {
	var events []models.Event
	err := r.db.Where("recurrence <> ''").Find(&events).Error
	return events, err
}

// ReplaceOccurrences swaps an event's materialized occurrences.
func (r *EventRepository) ReplaceOccurrences(eventID string, occurrences []models.Occurrence) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", eventID).Delete(&models.Occurrence{}).Error; err != nil {
			return err
		}
		if len(occurrences) == 0 {
			return nil
		}
		return tx.CreateInBatches(occurrences, 100).Error
	})
}

// Stats aggregates counts for the admin dashboard.
type Stats struct {
	TotalEvents         int64 `json:"total_events"`
	EventsWithLocation  int64 `json:"events_with_location"`
	RecurringEvents     int64 `json:"recurring_events"`
	PendingApplications int64 `json:"pending_applications"`
	TotalAuthors        int64 `json:"total_authors"`
}

func (r *EventRepository) Stats() (*Stats, error) {
	var stats Stats
	if err := r.db.Model(&models.Event{}).Count(&stats.TotalEvents).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.Event{}).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Count(&stats.EventsWithLocation).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.Event{}).Where("recurrence <> ''").Count(&stats.RecurringEvents).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.AuthorApplication{}).
		Where("status = ?", models.ApplicationPending).
		Count(&stats.PendingApplications).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.User{}).Where("role = ?", models.RoleAuthor).Count(&stats.TotalAuthors).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
