package handlers

import (
	"net/http"
)

// Routes wires the endpoints and the middleware chain.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /predict", h.Predict)
	mux.Handle("GET /metrics", h.metrics.Handler())

	chain := Chain(
		RequestLogger(h.logger, h.metrics),
		Recovery(h.logger),
		EnableCORS,
	)
	return chain(mux)
}
