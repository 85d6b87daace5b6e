package core

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// healthCheckTimeout bounds all probes together.
const healthCheckTimeout = 2 * time.Second

// HealthProbe checks one dependency (database, queue).
type HealthProbe interface {
	Name() string
	Check(ctx context.Context) error
}

// FuncProbe adapts a ping function, such as (*pgxpool.Pool).Ping, into a
// HealthProbe.
type FuncProbe struct {
	ProbeName string
	Fn        func(ctx context.Context) error
}

func (p FuncProbe) Name() string                    { return p.ProbeName }
func (p FuncProbe) Check(ctx context.Context) error { return p.Fn(ctx) }

type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth runs every probe concurrently under healthCheckTimeout. It
// answers 200 when all pass and 503 when any fails or times out.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{Status: "healthy"}
	if s.Config != nil {
		resp.Version = s.Config.Build.Version
	}
	if len(s.HealthProbes) == 0 {
		JSON(w, r, http.StatusOK, resp)
		return
	}

	// Each probe writes only its own slot; a nil entry after the deadline
	// means the probe never finished.
	results := make([]*componentStatus, len(s.HealthProbes))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i, probe := range s.HealthProbes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st := runProbe(ctx, probe)
			mu.Lock()
			results[i] = &st
			mu.Unlock()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()

	resp.Components = make(map[string]componentStatus, len(s.HealthProbes))
	for i, probe := range s.HealthProbes {
		st := results[i]
		if st == nil {
			st = &componentStatus{Status: "unhealthy", Message: "health check timed out"}
		}
		if st.Status != "healthy" {
			resp.Status = "unhealthy"
		}
		resp.Components[probe.Name()] = *st
	}

	if resp.Status != "healthy" {
		JSON(w, r, http.StatusServiceUnavailable, resp)
		return
	}
	JSON(w, r, http.StatusOK, resp)
}

func runProbe(ctx context.Context, p HealthProbe) (st componentStatus) {
	defer func() {
		if rvr := recover(); rvr != nil {
			st = componentStatus{Status: "unhealthy", Message: fmt.Sprintf("probe panicked: %v", rvr)}
		}
	}()
	if err := p.Check(ctx); err != nil {
		return componentStatus{Status: "unhealthy", Message: err.Error()}
	}
	return componentStatus{Status: "healthy"}
}
