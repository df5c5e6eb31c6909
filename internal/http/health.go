package httpserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"schemabridge/internal/connection"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler pings every connection whose adapter can be pinged, in
// parallel.
type HealthHandler struct {
	Conns *connection.Table
}

type healthResponse struct {
	Status      string            `json:"status"`
	Connections map[string]string `json:"connections"`
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var (
		mu   sync.Mutex
		resp = healthResponse{Status: "ok", Connections: map[string]string{}}
	)
	set := func(name, status string) {
		mu.Lock()
		defer mu.Unlock()
		resp.Connections[name] = status
		if status == "unhealthy" {
			resp.Status = "unhealthy"
		}
	}

	var g errgroup.Group
	for _, name := range h.Conns.Names() {
		b := h.Conns.Adapter(name)
		if b == nil {
			set(name, "detached")
			continue
		}
		p, ok := b.Adapter.(pinger)
		if !ok {
			set(name, "ok")
			continue
		}
		g.Go(func() error {
			if err := p.Ping(ctx); err != nil {
				set(name, "unhealthy")
				return nil
			}
			set(name, "ok")
			return nil
		})
	}
	_ = g.Wait()

	if resp.Status != "ok" {
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
