package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{
		"status":    "ok",
		"timestamp": s.opts.Now().Format(time.RFC3339),
		"uptime":    s.opts.Now().Sub(s.metrics.started).String(),
	}).Write(w)
}

// handleReady reports not ready when the stored document cannot be
// measured or the metadata store does not answer.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := map[string]any{}

	st, err := s.ledger.Status(ctx)
	if err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		code = http.StatusServiceUnavailable
	} else {
		checks["store"] = map[string]any{
			"status":        "ok",
			"revision":      st.Revision,
			"usage_percent": st.UsagePercent,
		}
	}
	checks["cache"] = s.statements.Stats()
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	NewJSONResponse().Status(code).Data(map[string]any{
		"status":    status,
		"timestamp": s.opts.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	sec := s.detector.GetMetrics()
	rl := s.limiter.GetMetrics()
	tr := s.tracer.GetMetrics()
	cs := s.statements.Stats()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "Total number of HTTP requests", "counter", tr.TotalRequests)
	metric("http_server_errors_total", "Responses with a 5xx status", "counter", tr.ServerErrors)
	metric("http_response_time_avg_us", "Average response time in microseconds", "gauge", tr.AverageResponseTime)
	metric("ledger_mutations_total", "Requests routed to a ledger mutation", "counter", s.metrics.mutations.Load())
	metric("ledger_revision", "Current in-memory ledger revision", "gauge", s.ledger.Revision())
	metric("statement_cache_hits_total", "Statement cache hits", "counter", cs.Hits)
	metric("statement_cache_misses_total", "Statement cache misses", "counter", cs.Misses)
	metric("statement_cache_entries", "Current statement cache entries", "gauge", cs.Size)
	metric("rate_limit_rejections_total", "Requests rejected by the rate limiter", "counter", rl.Rejected)
	metric("rate_limit_clients", "Currently tracked rate limit clients", "gauge", rl.ClientCount)
	metric("suspicious_requests_total", "Requests rejected as probes", "counter", sec.SuspiciousRequests)
	metric("uptime_seconds", "Application uptime in seconds", "gauge", fmt.Sprintf("%.0f", s.opts.Now().Sub(s.metrics.started).Seconds()))
}
