// File: /jobs/maintenance_job.go
package jobs

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"trianglecal-api/metrics"
	"trianglecal-api/repositories"
	"trianglecal-api/services"
)

// MaintenanceJob runs scheduled housekeeping: sweeping idle planner
// sessions hourly and rematerializing recurring-event occurrences
// nightly.
type MaintenanceJob struct {
	cron       *cron.Cron
	repo       *repositories.EventRepository
	planner    *services.PlannerService
	recurrence *services.RecurrenceService
}

func NewMaintenanceJob(db *gorm.DB, planner *services.PlannerService, recurrence *services.RecurrenceService) *MaintenanceJob {
	return &MaintenanceJob{
		cron:       cron.New(),
		repo:       repositories.NewEventRepository(db),
		planner:    planner,
		recurrence: recurrence,
	}
}

func (j *MaintenanceJob) Start() error {
	if _, err := j.cron.AddFunc("@hourly", j.sweepSessions); err != nil {
		return err
	}
	if _, err := j.cron.AddFunc("@midnight", j.refreshOccurrences); err != nil {
		return err
	}

	j.cron.Start()
	log.Println("Maintenance job started")

	// Materialize once at boot so a fresh deployment serves recurring
	// events immediately.
	go j.refreshOccurrences()
	return nil
}

func (j *MaintenanceJob) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	log.Println("Maintenance job stopped")
}

func (j *MaintenanceJob) sweepSessions() {
	removed := j.planner.Sweep()
	metrics.PlannerSessions.Set(float64(j.planner.SessionCount()))
	if removed > 0 {
		log.Printf("Swept %d idle planner sessions", removed)
	}
}

func (j *MaintenanceJob) refreshOccurrences() {
	events, err := j.repo.Recurring()
	if err != nil {
		log.Printf("Warning: could not load recurring events: %v", err)
		return
	}

	now := time.Now()
	from := now.AddDate(0, 0, -1)
	to := now.AddDate(1, 0, 0)

	refreshed := 0
	for _, ev := range events {
		occurrences, err := j.recurrence.Expand(ev, from, to)
		if err != nil {
			log.Printf("Warning: skipping recurrence for event %s: %v", ev.ID, err)
			continue
		}
		if err := j.repo.ReplaceOccurrences(ev.ID, occurrences); err != nil {
			log.Printf("Warning: could not store occurrences for event %s: %v", ev.ID, err)
			continue
		}
		refreshed++
	}

	if refreshed > 0 {
		log.Printf("Refreshed occurrences for %d recurring events", refreshed)
	}
}
