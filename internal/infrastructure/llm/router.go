package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/domain/service"
)

// RouterConfig tunes the per-provider circuit breakers.
type RouterConfig struct {
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// BreakerObserver receives circuit state transitions (metrics).
type BreakerObserver interface {
	RecordBreakerState(provider string, state string)
}

// Router implements service.LLMClient by routing to the best available provider.
// Strategy: providers ordered by priority; the first healthy one that serves
// the model wins, the rest are failover.
// Features: per-provider latency tracking, circuit breaker, failover.
type Router struct {
	providers []routedProvider
	stats     map[string]*providerStats  // provider name → stats
	breakers  map[string]*CircuitBreaker // provider name → circuit breaker
	config    RouterConfig
	observer  BreakerObserver
	mu        sync.RWMutex
	logger    *zap.Logger
}

type routedProvider struct {
	Provider
	priority int
}

// providerStats tracks per-provider performance metrics.
type providerStats struct {
	TotalCalls   int64
	FailureCount int64
	LastLatency  time.Duration
}

// NewRouter creates a new LLM router. observer may be nil.
func NewRouter(cfg RouterConfig, observer BreakerObserver, logger *zap.Logger) *Router {
	return &Router{
		stats:    make(map[string]*providerStats),
		breakers: make(map[string]*CircuitBreaker),
		config:   cfg,
		observer: observer,
		logger:   logger.With(zap.String("component", "llm-router")),
	}
}

// Compile-time interface check: Router implements service.LLMClient
var _ service.LLMClient = (*Router)(nil)

// AddProvider adds a provider to the router. Lower priority values are tried
// first; equal priorities keep insertion order.
func (r *Router) AddProvider(p Provider, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers = append(r.providers, routedProvider{Provider: p, priority: priority})
	sort.SliceStable(r.providers, func(i, j int) bool {
		return r.providers[i].priority < r.providers[j].priority
	})

	name := p.Name()
	r.stats[name] = &providerStats{}
	cb := NewCircuitBreaker(r.config.BreakerThreshold, r.config.BreakerCooldown)
	cb.OnStateChange(func(from, to CircuitState) {
		r.logger.Warn("Provider circuit state changed",
			zap.String("provider", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
		if r.observer != nil {
			r.observer.RecordBreakerState(name, to.String())
		}
	})
	r.breakers[name] = cb

	r.logger.Info("LLM provider added",
		zap.String("name", name),
		zap.Int("priority", priority),
		zap.Strings("models", p.Models()),
	)
}

// Generate implements service.LLMClient.
// It routes to the first available provider that supports the requested model.
// Failed calls are never retried on the same provider.
func (r *Router) Generate(ctx context.Context, req *service.LLMRequest) (*service.LLMResponse, error) {
	r.mu.RLock()
	providers := make([]routedProvider, len(r.providers))
	copy(providers, r.providers)
	r.mu.RUnlock()

	traceID := service.TraceIDFromContext(ctx)
	var lastErr *service.LLMError

	for _, p := range providers {
		if !p.SupportsModel(req.Model) {
			continue
		}

		if !p.IsAvailable(ctx) {
			r.logger.Debug("Provider unavailable, skipping",
				zap.String("provider", p.Name()),
			)
			continue
		}

		cb := r.breakerFor(p.Name())
		if cb != nil && !cb.Allow() {
			r.logger.Debug("Provider circuit open, skipping",
				zap.String("provider", p.Name()),
			)
			continue
		}

		r.logger.Debug("Routing to provider",
			zap.String("provider", p.Name()),
			zap.String("model", req.Model),
			zap.String("trace_id", traceID),
		)

		start := time.Now()
		resp, err := p.Generate(ctx, req)
		latency := time.Since(start)

		r.mu.Lock()
		if s, ok := r.stats[p.Name()]; ok {
			s.TotalCalls++
			s.LastLatency = latency
			if err != nil {
				s.FailureCount++
			}
		}
		r.mu.Unlock()

		if err != nil {
			llmErr := service.ClassifyError(err, p.Name())
			if cb != nil {
				if llmErr.Kind.CountsAgainstProvider() {
					cb.RecordFailure()
				} else {
					cb.Release()
				}
			}
			if llmErr.Kind == service.ErrKindCancelled {
				return nil, llmErr
			}
			lastErr = llmErr
			r.logger.Warn("Provider failed, trying next",
				zap.String("provider", p.Name()),
				zap.String("kind", llmErr.Kind.String()),
				zap.String("trace_id", traceID),
				zap.Duration("latency", latency),
				zap.Error(err),
			)
			continue
		}

		if cb != nil {
			cb.RecordSuccess()
		}

		r.logger.Debug("Provider succeeded",
			zap.String("provider", p.Name()),
			zap.Duration("latency", latency),
			zap.Int("tokens", resp.TokensUsed),
		)

		return resp, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("all providers failed, last error: %w", lastErr)
	}

	return nil, &service.LLMError{
		Kind:    service.ErrKindTransient,
		Message: fmt.Sprintf("no provider available for model '%s'", req.Model),
	}
}

func (r *Router) breakerFor(name string) *CircuitBreaker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.breakers[name]
}

// ListProviders returns names, status, and performance stats of all registered providers
func (r *Router) ListProviders(ctx context.Context) []ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ProviderStatus, 0, len(r.providers))
	for _, p := range r.providers {
		ps := ProviderStatus{
			Name:      p.Name(),
			Models:    p.Models(),
			Priority:  p.priority,
			Available: p.IsAvailable(ctx),
		}
		if s, ok := r.stats[p.Name()]; ok {
			ps.TotalCalls = s.TotalCalls
			ps.FailureCount = s.FailureCount
			ps.LastLatencyMs = float64(s.LastLatency) / float64(time.Millisecond)
		}
		if cb, ok := r.breakers[p.Name()]; ok {
			ps.CircuitState = cb.State().String()
		}
		result = append(result, ps)
	}
	return result
}

// ProviderStatus describes a provider's current state and performance
type ProviderStatus struct {
	Name          string   `json:"name"`
	Models        []string `json:"models"`
	Priority      int      `json:"priority"`
	Available     bool     `json:"available"`
	TotalCalls    int64    `json:"total_calls"`
	FailureCount  int64    `json:"failure_count"`
	LastLatencyMs float64  `json:"last_latency_ms"`
	CircuitState  string   `json:"circuit_state"`
}
