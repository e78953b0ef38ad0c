package models

import "time"

// HealthCheck reports the state of every collaborator of the converter.
type HealthCheck struct {
	Status      string            `json:"status"`
	Environment string            `json:"environment"`
	Timestamp   time.Time         `json:"timestamp"`
	Services    map[string]string `json:"services"`
}
