package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/shipdoc/internal/shipment"
	"github.com/tournevent/shipdoc/internal/telemetry"
	"github.com/tournevent/shipdoc/pkg/carrier/novaposhta"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const maxBatchSize = 100

// Provisioner obtains shipment documents for orders.
type Provisioner interface {
	Provision(ctx context.Context, orderID int64, params shipment.Parameters) (*shipment.ShipmentDocument, error)
	ProvisionBatch(ctx context.Context, reqs []shipment.BatchRequest) []shipment.BatchResult
}

// Documents reads and revokes stored shipment documents.
type Documents interface {
	GetByOrderID(ctx context.Context, orderID int64) (*shipment.ShipmentDocument, error)
	List(ctx context.Context) ([]shipment.ShipmentDocument, error)
	Delete(ctx context.Context, ref string) error
}

// Server is the HTTP server for the shipment document service.
type Server struct {
	port        int
	provisioner Provisioner
	documents   Documents
	gatherer    prometheus.Gatherer
	metrics     *telemetry.Metrics
	logger      *otelzap.Logger
}

// Config holds server configuration.
type Config struct {
	Port int
	// Gatherer backs /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer
}

// New creates a new server instance.
func New(cfg Config, provisioner Provisioner, documents Documents, metrics *telemetry.Metrics, logger *otelzap.Logger) *Server {
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &Server{
		port:        cfg.Port,
		provisioner: provisioner,
		documents:   documents,
		gatherer:    gatherer,
		metrics:     metrics,
		logger:      logger,
	}
}

// Handler returns the HTTP routes of the service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.route(mux, "POST /orders/{orderID}/shipment", s.handleProvision)
	s.route(mux, "GET /orders/{orderID}/shipment", s.handleGetShipment)
	s.route(mux, "POST /shipments/batch", s.handleProvisionBatch)
	s.route(mux, "GET /shipments", s.handleListShipments)
	s.route(mux, "DELETE /shipments/{ref}", s.handleDeleteShipment)

	return mux
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
		// Provisioning makes up to nine sequential carrier calls.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// route registers h under pattern with request ids, logging and metrics.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)

		took := time.Since(start)
		s.metrics.RecordRequest(pattern, strconv.Itoa(rec.status), took.Seconds())
		s.logger.Ctx(r.Context()).Info("Request handled",
			zap.String("request_id", requestID),
			zap.String("route", pattern),
			zap.Int("status", rec.status),
			zap.Duration("took", took),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Code          string   `json:"code"`
	Step          string   `json:"step,omitempty"`
	Completed     string   `json:"completed,omitempty"`
	Message       string   `json:"message"`
	CarrierErrors []string `json:"carrierErrors,omitempty"`
	Retryable     bool     `json:"retryable"`
}

type batchResult struct {
	OrderID  int64                      `json:"orderId"`
	Document *shipment.ShipmentDocument `json:"document,omitempty"`
	Error    *errorResponse             `json:"error,omitempty"`
}

func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	orderID, ok := s.orderID(w, r)
	if !ok {
		return
	}

	var params shipment.Parameters
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Code: "INVALID_JSON", Message: err.Error()})
		return
	}

	doc, err := s.provisioner.Provision(r.Context(), orderID, params)
	if err != nil {
		status, body := provisionFailure(err)
		writeError(w, status, body)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleProvisionBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []shipment.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Code: "INVALID_JSON", Message: err.Error()})
		return
	}
	if len(reqs) == 0 || len(reqs) > maxBatchSize {
		writeError(w, http.StatusBadRequest, errorResponse{
			Code:    "INVALID_BATCH",
			Message: fmt.Sprintf("batch must hold between 1 and %d orders", maxBatchSize),
		})
		return
	}

	results := s.provisioner.ProvisionBatch(r.Context(), reqs)
	out := make([]batchResult, 0, len(results))
	for _, res := range results {
		item := batchResult{OrderID: res.OrderID, Document: res.Document}
		if res.Err != nil {
			_, body := provisionFailure(res.Err)
			item.Error = &body
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetShipment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := s.orderID(w, r)
	if !ok {
		return
	}

	doc, err := s.documents.GetByOrderID(r.Context(), orderID)
	if errors.Is(err, shipment.ErrDocumentNotFound) {
		writeError(w, http.StatusNotFound, errorResponse{Code: "DOCUMENT_NOT_FOUND", Message: err.Error()})
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleListShipments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.List(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleDeleteShipment(w http.ResponseWriter, r *http.Request) {
	err := s.documents.Delete(r.Context(), r.PathValue("ref"))

	var apiErr *novaposhta.APIError
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, shipment.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, errorResponse{Code: "DOCUMENT_NOT_FOUND", Message: err.Error()})
	case errors.As(err, &apiErr):
		writeError(w, http.StatusBadGateway, errorResponse{
			Code:          string(shipment.CodeCarrierRejected),
			Message:       err.Error(),
			CarrierErrors: apiErr.Errors,
		})
	case errors.Is(err, shipment.ErrRevocationUnconfirmed):
		writeError(w, http.StatusBadGateway, errorResponse{Code: "REVOCATION_UNCONFIRMED", Message: err.Error()})
	default:
		writeError(w, http.StatusBadGateway, errorResponse{
			Code:      string(shipment.CodeTransportError),
			Message:   err.Error(),
			Retryable: true,
		})
	}
}

func (s *Server) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("orderID"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, errorResponse{
			Code:    "INVALID_ORDER_ID",
			Message: "order id must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Ctx(r.Context()).Error("Request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, errorResponse{Code: "INTERNAL", Message: "internal error"})
}

// provisionFailure maps a provisioning error to an HTTP status and body.
func provisionFailure(err error) (int, errorResponse) {
	var pe *shipment.ProvisionError
	if !errors.As(err, &pe) {
		return http.StatusInternalServerError, errorResponse{Code: "INTERNAL", Message: err.Error()}
	}

	body := errorResponse{
		Code:          string(pe.Code),
		Step:          string(pe.Step),
		Completed:     string(pe.Completed),
		Message:       pe.Message,
		CarrierErrors: pe.CarrierErrors,
		Retryable:     pe.Retryable,
	}

	switch pe.Code {
	case shipment.CodeInvalidParameters:
		return http.StatusBadRequest, body
	case shipment.CodeOrderNotFound:
		return http.StatusNotFound, body
	case shipment.CodeDocumentAlreadyExists:
		return http.StatusConflict, body
	case shipment.CodeDestinationWarehouseNotFound,
		shipment.CodeMalformedAddress,
		shipment.CodeAmbiguousOrMissingRecipientMatch,
		shipment.CodeRecipientAddressMissing,
		shipment.CodeStreetResolutionFailed:
		return http.StatusUnprocessableEntity, body
	case shipment.CodeRecipientCreateFailed,
		shipment.CodeAddressBindFailed,
		shipment.CodeCarrierRejected,
		shipment.CodeEmptyCarrierResponse,
		shipment.CodeTransportError:
		return http.StatusBadGateway, body
	case shipment.CodeCancelled:
		return http.StatusServiceUnavailable, body
	default:
		return http.StatusInternalServerError, body
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, body errorResponse) {
	writeJSON(w, status, body)
}
