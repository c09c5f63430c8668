package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Table backends.
const (
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

// Config carries environment-driven settings shared by every binary.
type Config struct {
	Region           string
	EndpointOverride string
	TableBackend     string

	OrdersTable      string
	CustomersTable   string
	MenuTable        string
	RestaurantsTable string

	InvalidOrdersQueueURL string
	MetricsNamespace      string

	RunLocal      bool
	Port          string
	SweepInterval time.Duration
}

// Load reads environment variables, applies defaults, and validates basic constraints.
func Load() (Config, error) {
	cfg := Config{
		Region:                envDefault("AWS_REGION", "us-east-1"),
		EndpointOverride:      strings.TrimSpace(os.Getenv("AWS_ENDPOINT_OVERRIDE")),
		TableBackend:          strings.ToLower(envDefault("TABLE_BACKEND", BackendDynamoDB)),
		OrdersTable:           envDefault("ORDERS_TABLE", "OrderTable"),
		CustomersTable:        envDefault("CUSTOMERS_TABLE", "CustomerTable"),
		MenuTable:             envDefault("MENU_TABLE", "MenuTable"),
		RestaurantsTable:      envDefault("RESTAURANTS_TABLE", "RestaurantTable"),
		InvalidOrdersQueueURL: strings.TrimSpace(os.Getenv("INVALID_ORDERS_QUEUE_URL")),
		MetricsNamespace:      envDefault("METRICS_NAMESPACE", "NomNomNow"),
		RunLocal:              isTruthy(os.Getenv("RUN_LOCAL")),
		Port:                  envDefault("PORT", "8080"),
		SweepInterval:         5 * time.Minute,
	}

	switch cfg.TableBackend {
	case BackendDynamoDB:
		if cfg.InvalidOrdersQueueURL == "" {
			return Config{}, fmt.Errorf("INVALID_ORDERS_QUEUE_URL is required for the %s backend", BackendDynamoDB)
		}
	case BackendMemory:
	default:
		return Config{}, fmt.Errorf("TABLE_BACKEND must be %q or %q, got %q", BackendDynamoDB, BackendMemory, cfg.TableBackend)
	}

	if raw := strings.TrimSpace(os.Getenv("SWEEP_INTERVAL_MINUTES")); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			return Config{}, fmt.Errorf("SWEEP_INTERVAL_MINUTES must be a positive integer")
		}
		cfg.SweepInterval = time.Duration(minutes) * time.Minute
	}

	return cfg, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
