package model

import "time"

// ServiceStatus is the probe outcome for a single dependency.
type ServiceStatus string

const (
	ServiceHealthy  ServiceStatus = "healthy"
	ServiceDegraded ServiceStatus = "degraded"
	ServiceDown     ServiceStatus = "down"
)

// OverallStatus aggregates per-service probe outcomes.
type OverallStatus string

const (
	OverallHealthy   OverallStatus = "healthy"
	OverallDegraded  OverallStatus = "degraded"
	OverallUnhealthy OverallStatus = "unhealthy"
)

// ServiceHealth is one probe result for one dependency.
type ServiceHealth struct {
	Service        string        `json:"service"`
	Status         ServiceStatus `json:"status"`
	ResponseTimeMs int64         `json:"responseTimeMs"`
	Message        string        `json:"message,omitempty"`
	CheckedAt      time.Time     `json:"checkedAt"`
}

// HealthReport is the aggregate of one health check pass.
type HealthReport struct {
	Status   OverallStatus   `json:"status"`
	Services []ServiceHealth `json:"services"`
}

// Aggregate derives the overall status from individual service probes.
func Aggregate(services []ServiceHealth) OverallStatus {
	if len(services) == 0 {
		return OverallUnhealthy
	}
	allHealthy := true
	for _, s := range services {
		switch s.Status {
		case ServiceDown:
			return OverallUnhealthy
		case ServiceHealthy:
		default:
			allHealthy = false
		}
	}
	if allHealthy {
		return OverallHealthy
	}
	return OverallDegraded
}
