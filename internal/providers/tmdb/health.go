package tmdb

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"watchtrack/internal/domain"
	"watchtrack/internal/metrics"
)

const (
	failureThreshold = 3
	blockBase        = 2 * time.Minute
	blockMax         = 15 * time.Minute
)

type operationHealth struct {
	consecutiveFailures int
	blockedUntil        time.Time
	lastError           string
	lastSuccessAt       time.Time
	lastFailureAt       time.Time
	lastLatency         time.Duration
	totalRequests       int64
	totalFailures       int64
}

// breaker tracks consecutive failures per catalog operation and blocks an
// operation once it crosses failureThreshold.
type breaker struct {
	mu    sync.Mutex
	state map[string]*operationHealth
}

func newBreaker() *breaker {
	return &breaker{state: make(map[string]*operationHealth)}
}

func (b *breaker) blocked(op string, now time.Time) (bool, time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	state := b.state[op]
	if state == nil || state.blockedUntil.IsZero() || now.After(state.blockedUntil) {
		return false, time.Time{}
	}
	return true, state.blockedUntil
}

func (b *breaker) record(op string, err error, latency time.Duration, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.state[op]
	if state == nil {
		state = &operationHealth{}
		b.state[op] = state
	}
	state.totalRequests++
	if latency > 0 {
		state.lastLatency = latency
		metrics.CatalogRequestDuration.WithLabelValues(op).Observe(latency.Seconds())
	}

	if err == nil || !countsAsFailure(err) {
		state.consecutiveFailures = 0
		state.blockedUntil = time.Time{}
		state.lastError = ""
		state.lastSuccessAt = now
		status := "ok"
		if err != nil {
			status = "client_error"
		}
		metrics.CatalogRequestsTotal.WithLabelValues(op, status).Inc()
		metrics.CatalogAvailable.WithLabelValues(op).Set(1)
		return
	}

	state.consecutiveFailures++
	state.totalFailures++
	state.lastFailureAt = now
	state.lastError = err.Error()

	status := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		status = "timeout"
	}
	metrics.CatalogRequestsTotal.WithLabelValues(op, status).Inc()

	if state.consecutiveFailures >= failureThreshold {
		state.blockedUntil = now.Add(blockDuration(state.consecutiveFailures))
		metrics.CatalogAvailable.WithLabelValues(op).Set(0)
	}
}

// countsAsFailure keeps caller mistakes and cancellations from tripping the breaker.
func countsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode
		return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests || code == http.StatusUnauthorized
	}
	return true
}

// blockDuration is blockBase × 2^(failures - threshold), capped at blockMax.
func blockDuration(consecutiveFailures int) time.Duration {
	exponent := consecutiveFailures - failureThreshold
	if exponent < 0 {
		exponent = 0
	}
	d := blockBase
	for i := 0; i < exponent; i++ {
		d *= 2
		if d > blockMax {
			return blockMax
		}
	}
	return d
}

func (b *breaker) snapshot(now time.Time) []domain.CatalogOperationHealth {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := make([]domain.CatalogOperationHealth, 0, len(b.state))
	for op, state := range b.state {
		item := domain.CatalogOperationHealth{
			Operation:           op,
			Available:           state.blockedUntil.IsZero() || now.After(state.blockedUntil),
			ConsecutiveFailures: state.consecutiveFailures,
			LastError:           state.lastError,
			LastLatencyMS:       state.lastLatency.Milliseconds(),
			TotalRequests:       state.totalRequests,
			TotalFailures:       state.totalFailures,
		}
		if !state.blockedUntil.IsZero() {
			blockedUntil := state.blockedUntil
			item.BlockedUntil = &blockedUntil
		}
		if !state.lastSuccessAt.IsZero() {
			lastSuccessAt := state.lastSuccessAt
			item.LastSuccessAt = &lastSuccessAt
		}
		if !state.lastFailureAt.IsZero() {
			lastFailureAt := state.lastFailureAt
			item.LastFailureAt = &lastFailureAt
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Operation < items[j].Operation
	})
	return items
}
