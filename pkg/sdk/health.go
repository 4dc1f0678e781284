package quizdex

import (
	"context"

	healthuc "github.com/kailas-cloud/quizdex/internal/usecase/health"
)

// Aggregated health values reported in HealthStatus.Status.
const (
	HealthOK       = string(healthuc.Healthy)
	HealthDegraded = string(healthuc.Degraded)
	HealthError    = string(healthuc.Unhealthy)
)

// HealthStatus is the aggregated health of the embedded client.
// Checks maps a component (catalog, redis, embedding) to "ok" or "error".
type HealthStatus struct {
	Status string
	Checks map[string]string
}

// Serving reports whether selections can still be answered. A degraded
// cache or provider still serves; only a lost catalog does not.
func (h HealthStatus) Serving() bool { return h.Status != HealthError }

// Health probes the catalog, the redis store when configured, and the
// embedding provider.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{Status: string(report.Status), Checks: checks}
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
