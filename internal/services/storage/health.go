package storage

import "context"

// Pinger is anything that can report its own availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

const (
	StatusHealthy       = "healthy"
	StatusNotConfigured = "not configured"
)

// HealthCheck pings every dependency and reports a status per name. Nil
// dependencies are reported as not configured.
func HealthCheck(ctx context.Context, deps map[string]Pinger) map[string]string {
	status := make(map[string]string, len(deps))
	for name, dep := range deps {
		if dep == nil {
			status[name] = StatusNotConfigured
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			status[name] = "unhealthy: " + err.Error()
		} else {
			status[name] = StatusHealthy
		}
	}
	return status
}

// OverallHealth is healthy only when no dependency reports a failure.
func OverallHealth(services map[string]string) string {
	for _, status := range services {
		if status != StatusHealthy && status != StatusNotConfigured {
			return "unhealthy"
		}
	}
	return StatusHealthy
}
