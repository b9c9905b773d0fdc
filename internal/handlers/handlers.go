package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/Brownie44l1/diabetes-api/internal/metrics"
	"github.com/Brownie44l1/diabetes-api/internal/model"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const defaultMaxBodyBytes = 1 << 20

// Predictor scores one decoded request body.
type Predictor interface {
	Predict(ctx context.Context, in model.Input) (*model.PredictionResponse, error)
}

type Handler struct {
	predictor    Predictor
	metadata     model.Metadata
	metrics      *metrics.Metrics
	logger       log.FieldLogger
	maxBodyBytes int64
}

type Option func(*Handler)

func WithLogger(logger log.FieldLogger) Option {
	return func(h *Handler) { h.logger = logger }
}

func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

func NewHandler(predictor Predictor, metadata model.Metadata, m *metrics.Metrics, opts ...Option) *Handler {
	h := &Handler{
		predictor:    predictor,
		metadata:     metadata,
		metrics:      m,
		logger:       log.StandardLogger(),
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
	model.Metadata
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Metadata: h.metadata})
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.WithField("request_id", RequestID(r.Context()))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		h.fail(w, logger, errors.Wrap(err, "failed to read request body"))
		return
	}

	in, err := model.ParseInput(body)
	if err != nil {
		h.fail(w, logger, err)
		return
	}

	result, err := h.predictor.Predict(r.Context(), in)
	if err != nil {
		h.fail(w, logger, err)
		return
	}

	h.metrics.ObservePrediction(result.Label)
	logger.WithFields(log.Fields{
		"prediction": result.Prediction,
		"label":      result.Label,
	}).Debug("prediction served")

	writeJSON(w, http.StatusOK, result)
}

// fail maps an error to its response. Only ErrInvalidInput is a client
// error; everything else is a 500 carrying the error text.
func (h *Handler) fail(w http.ResponseWriter, logger log.FieldLogger, err error) {
	if errors.Is(err, model.ErrInvalidInput) {
		h.metrics.ObserveError(metrics.KindInvalidInput)
		logger.WithError(err).Warn("rejected request body")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: model.ErrInvalidInput.Error()})
		return
	}

	h.metrics.ObserveError(metrics.KindProcessing)
	logger.Errorf("prediction failed: %+v", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

// writeJSON encodes before writing the header so an unencodable value
// still produces a JSON 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.WithError(err).Error("failed to encode response")
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: err.Error()})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}
