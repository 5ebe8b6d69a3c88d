// File: /database/database.go
package database

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"trianglecal-api/models"
)

func Initialize(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.Occurrence{},
		&models.AuthorApplication{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := addCustomIndexes(db); err != nil {
		return fmt.Errorf("failed to add custom indexes: %w", err)
	}

	return nil
}

func addCustomIndexes(db *gorm.DB) error {
	// Composite indexes for the hot listing paths.
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_events_date_city ON events(date, city)").Error; err != nil {
		fmt.Printf("Warning: Could not create index for events date/city: %v\n", err)
	}

	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_events_coords ON events(latitude, longitude)").Error; err != nil {
		fmt.Printf("Warning: Could not create index for events coordinates: %v\n", err)
	}

	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_occurrences_date_event ON occurrences(date, event_id)").Error; err != nil {
		fmt.Printf("Warning: Could not create index for occurrences: %v\n", err)
	}

	return nil
}

// seedFile mirrors the YAML fixture layout.
type seedFile struct {
	Users  []seedUser  `yaml:"users"`
	Events []seedEvent `yaml:"events"`
}

type seedUser struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"` // pre-hashed
	Role     string `yaml:"role"`
}

type seedEvent struct {
	Title        string   `yaml:"title"`
	Description  string   `yaml:"description"`
	LocationName string   `yaml:"location_name"`
	Address      string   `yaml:"address"`
	City         string   `yaml:"city"`
	Date         string   `yaml:"date"`
	Times        string   `yaml:"times"`
	Latitude     *float64 `yaml:"latitude"`
	Longitude    *float64 `yaml:"longitude"`
	Cost         string   `yaml:"cost"`
	Categories   []string `yaml:"categories"`
	Recurrence   string   `yaml:"recurrence"`
	Creator      string   `yaml:"creator"`
}

// SeedData populates the database from a YAML fixture file for
// development. A missing file or already-populated database is not an
// error.
func SeedData(db *gorm.DB, path string) error {
	var userCount int64
	db.Model(&models.User{}).Count(&userCount)
	if userCount > 0 {
		fmt.Println("Database already has data, skipping seed")
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	for _, su := range seed.Users {
		user := models.User{
			ID:            su.ID,
			Name:          su.Name,
			Email:         su.Email,
			Password:      su.Password,
			Role:          su.Role,
			EmailVerified: true,
		}
		if err := db.Create(&user).Error; err != nil {
			fmt.Printf("Warning: Could not create seed user %s: %v\n", su.Email, err)
		}
	}

	for _, se := range seed.Events {
		event := models.Event{
			ID:           uuid.New().String(),
			Title:        se.Title,
			Description:  se.Description,
			LocationName: se.LocationName,
			Address:      se.Address,
			City:         se.City,
			Date:         se.Date,
			Times:        se.Times,
			Latitude:     se.Latitude,
			Longitude:    se.Longitude,
			Cost:         se.Cost,
			Categories:   models.StringSlice(se.Categories),
			Recurrence:   se.Recurrence,
			CreatorID:    se.Creator,
		}
		if err := db.Create(&event).Error; err != nil {
			fmt.Printf("Warning: Could not create seed event %s: %v\n", se.Title, err)
		}
	}

	fmt.Printf("Database seeded with %d users and %d events\n", len(seed.Users), len(seed.Events))
	return nil
}
