// File: /config/config.go
package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	SentryDSN   string

	// Mapping provider (Mapbox-compatible endpoints)
	MapboxToken       string
	GeocodeBaseURL    string
	DirectionsBaseURL string

	// Regional defaults: the app serves the North Carolina Triangle.
	RegionQualifier string  // appended to geocode queries, e.g. "NC"
	AnchorLatitude  float64 // geocode proximity bias
	AnchorLongitude float64
	TimeZone        string

	// Seed fixtures (development)
	SeedFile string

	// Email Configuration
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string

	// Blob storage for event images
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string
}

func Load() *Config {
	smtpPort, _ := strconv.Atoi(getEnv("SMTP_PORT", "2525"))
	anchorLat, _ := strconv.ParseFloat(getEnv("ANCHOR_LATITUDE", "35.78"), 64)
	anchorLng, _ := strconv.ParseFloat(getEnv("ANCHOR_LONGITUDE", "-78.64"), 64)
	minioSSL, _ := strconv.ParseBool(getEnv("MINIO_USE_SSL", "false"))

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "user:password@tcp(localhost:3306)/trianglecal?charset=utf8mb4&parseTime=True&loc=Local"),
		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),

		MapboxToken:       getEnv("MAPBOX_TOKEN", ""),
		GeocodeBaseURL:    getEnv("GEOCODE_BASE_URL", "https://api.mapbox.com/geocoding/v5/mapbox.places"),
		DirectionsBaseURL: getEnv("DIRECTIONS_BASE_URL", "https://api.mapbox.com/directions/v5/mapbox"),

		RegionQualifier: getEnv("REGION_QUALIFIER", "NC"),
		AnchorLatitude:  anchorLat,
		AnchorLongitude: anchorLng,
		TimeZone:        getEnv("TIME_ZONE", "America/New_York"),

		SeedFile: getEnv("SEED_FILE", "seed/events.yaml"),

		// Email settings
		SMTPHost:     getEnv("SMTP_HOST", "sandbox.smtp.mailtrap.io"),
		SMTPPort:     smtpPort,
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		FromEmail:    getEnv("FROM_EMAIL", "noreply@trianglecal.com"),
		FromName:     getEnv("FROM_NAME", "TriangleCal"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getEnv("MINIO_BUCKET", "event-images"),
		MinioUseSSL:    minioSSL,
		MinioPublicURL: getEnv("MINIO_PUBLIC_URL", "http://localhost:9000/event-images"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
