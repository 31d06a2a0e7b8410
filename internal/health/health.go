// Package health probes the pipeline's external dependencies: the
// database, the Anthropic API, and the search provider.
package health

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/shortlist-cli/internal/model"
	"github.com/sells-group/shortlist-cli/internal/search"
)

const (
	probeTimeout = 10 * time.Second
	// Responses slower than this mark the service degraded.
	slowThreshold = 5 * time.Second
)

// Recorder is the store subset the checker needs: connectivity probe
// plus the health_checks audit trail.
type Recorder interface {
	Ping(ctx context.Context) error
	InsertHealthCheck(ctx context.Context, hc model.ServiceHealth) error
}

// LLMPinger issues a minimal round trip against the model API.
type LLMPinger interface {
	Ping(ctx context.Context, timeout time.Duration) error
}

// Checker probes each dependency. A nil analyzer or provider reports
// that service as down without issuing a request.
type Checker struct {
	store    Recorder
	analyzer LLMPinger
	provider search.Provider
}

func New(store Recorder, analyzer LLMPinger, provider search.Provider) *Checker {
	return &Checker{store: store, analyzer: analyzer, provider: provider}
}

// Check probes every dependency and returns the aggregate report. Each
// probe result is also persisted, best effort.
func (c *Checker) Check(ctx context.Context) model.HealthReport {
	services := []model.ServiceHealth{
		c.checkDatabase(ctx),
		c.checkAnalyzer(ctx),
		c.checkSearch(ctx),
	}
	report := model.HealthReport{
		Status:   model.Aggregate(services),
		Services: services,
	}
	for _, svc := range services {
		if err := c.store.InsertHealthCheck(ctx, svc); err != nil {
			zap.L().Warn("could not record health check",
				zap.String("service", svc.Service), zap.Error(err))
		}
	}
	return report
}

func (c *Checker) checkDatabase(ctx context.Context) model.ServiceHealth {
	return c.probe(ctx, "database", func(ctx context.Context) error {
		return c.store.Ping(ctx)
	})
}

func (c *Checker) checkAnalyzer(ctx context.Context) model.ServiceHealth {
	if c.analyzer == nil {
		return notConfigured("anthropic")
	}
	return c.probe(ctx, "anthropic", func(ctx context.Context) error {
		return c.analyzer.Ping(ctx, probeTimeout)
	})
}

func (c *Checker) checkSearch(ctx context.Context) model.ServiceHealth {
	if c.provider == nil {
		return notConfigured("search")
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	_, err := c.provider.Search(probeCtx, "test", 1)
	elapsed := time.Since(start)

	svc := model.ServiceHealth{
		Service:        "search",
		ResponseTimeMs: elapsed.Milliseconds(),
		CheckedAt:      time.Now().UTC(),
	}
	switch {
	case eris.Is(err, search.ErrQuotaExceeded):
		// An exhausted quota still proves the provider is reachable.
		svc.Status = model.ServiceDegraded
		svc.Message = "search quota exhausted"
	case err != nil:
		svc.Status = model.ServiceDown
		svc.Message = err.Error()
	case elapsed > slowThreshold:
		svc.Status = model.ServiceDegraded
		svc.Message = "slow response"
	default:
		svc.Status = model.ServiceHealthy
	}
	return svc
}

func (c *Checker) probe(ctx context.Context, service string, fn func(context.Context) error) model.ServiceHealth {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	err := fn(probeCtx)
	elapsed := time.Since(start)

	svc := model.ServiceHealth{
		Service:        service,
		ResponseTimeMs: elapsed.Milliseconds(),
		CheckedAt:      time.Now().UTC(),
	}
	switch {
	case err != nil:
		svc.Status = model.ServiceDown
		svc.Message = err.Error()
	case elapsed > slowThreshold:
		svc.Status = model.ServiceDegraded
		svc.Message = "slow response"
	default:
		svc.Status = model.ServiceHealthy
	}
	return svc
}

func notConfigured(service string) model.ServiceHealth {
	return model.ServiceHealth{
		Service:   service,
		Status:    model.ServiceDown,
		Message:   "not configured",
		CheckedAt: time.Now().UTC(),
	}
}
