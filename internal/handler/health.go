package handler

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/scramble-ai/scramble/internal/adapter"
	"github.com/scramble-ai/scramble/internal/dispatch"
	"github.com/scramble-ai/scramble/internal/metrics"
)

type adapterStatus struct {
	Available bool   `json:"available"`
	Selected  bool   `json:"selected,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type healthResponse struct {
	Status   string                   `json:"status"`
	Provider string                   `json:"provider"`
	Adapters map[string]adapterStatus `json:"adapters"`
}

// Health probes every registered adapter concurrently. Only the selected
// provider sees the configured credential, model and endpoint; the others
// are checked with their defaults.
func Health(settings dispatch.Settings, adapters adapter.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg := settings.Current()

		var mu sync.Mutex
		statuses := make(map[string]adapterStatus, len(adapters))

		g, ctx := errgroup.WithContext(r.Context())
		for kind, a := range adapters {
			req := adapter.GenerationRequest{Provider: kind, Model: kind.DefaultModel()}
			if kind == cfg.Provider {
				req = cfg.Request("")
			}
			g.Go(func() error {
				s := check(ctx, a, req)
				s.Selected = kind == cfg.Provider
				mu.Lock()
				statuses[string(kind)] = s
				mu.Unlock()
				return nil
			})
		}
		g.Wait()

		writeJSON(w, healthResponse{
			Status:   "ok",
			Provider: string(cfg.Provider),
			Adapters: statuses,
		})
	}
}

func check(ctx context.Context, a adapter.Adapter, req adapter.GenerationRequest) adapterStatus {
	gauge := metrics.ProviderAvailable.WithLabelValues(string(a.Kind()))
	if err := a.Check(ctx, req); err != nil {
		gauge.Set(0)
		return adapterStatus{Available: false, Reason: err.Error()}
	}
	gauge.Set(1)
	return adapterStatus{Available: true}
}
