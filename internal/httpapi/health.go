package httpapi

import (
	"context"
	"net/http"
	"time"
)

// checkTimeout bounds each readiness probe.
const checkTimeout = 5 * time.Second

// Checker is a named dependency probe evaluated by /readyz. Check returns
// nil when the dependency is healthy.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// healthResult is the JSON body of the health endpoints.
type healthResult struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleHealthz is a liveness probe; a process that can serve HTTP is alive.
func (a *API) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResult{Status: "ok"})
}

// handleReadyz evaluates every registered checker sequentially and reports
// 503 when any fails.
func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(a.checkers))
	allOK := true

	for _, c := range a.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	res := healthResult{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}
