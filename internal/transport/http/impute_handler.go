package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"glycoimpute/internal/dataprocessing"
	apierrors "glycoimpute/internal/errors"
	"glycoimpute/internal/impute"
	"glycoimpute/internal/services"
)

// ImputationHandler handles imputation HTTP requests.
type ImputationHandler struct {
	service        *services.ImputationService
	ref            *impute.Reference
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	validate       *validator.Validate
	maxUploadBytes int64
}

// NewImputationHandler creates the handler.
func NewImputationHandler(service *services.ImputationService, ref *impute.Reference, logger *slog.Logger, errorHandler *apierrors.ErrorHandler, maxUploadBytes int64) *ImputationHandler {
	return &ImputationHandler{
		service:        service,
		ref:            ref,
		logger:         logger.With(slog.String("component", "imputation_handler")),
		errorHandler:   errorHandler,
		validate:       validator.New(),
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the imputation routes.
func (h *ImputationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/impute", h.ImputeAll)
	r.Route("/impute/{analyte}", func(r chi.Router) {
		r.Use(h.AnalyteCtx)
		r.Post("/", h.Impute)
		r.Post("/file", h.ImputeFile)
	})
	r.Get("/reference/ranges", h.GetRanges)

	return r
}

// AnalyteCtx validates the analyte URL parameter.
func (h *ImputationHandler) AnalyteCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := impute.ParseAnalyte(chi.URLParam(r, "analyte")); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// imputeRequest is the JSON body of POST /api/impute and
// POST /api/impute/{analyte}.
type imputeRequest struct {
	Predictors map[string]impute.Vector `json:"predictors" validate:"required,min=1"`
	Options    imputeOptions            `json:"options"`
}

// imputeOptions mirrors impute.Options with request-level defaults: range
// checking and missing-value propagation are on unless disabled.
type imputeOptions struct {
	RangeCheck   *bool `json:"range_check"`
	Standardised bool  `json:"standardised"`
	NAOmit       *bool `json:"na_omit"`
}

func (o imputeOptions) toEngine() impute.Options {
	opts := impute.DefaultOptions()
	opts.Standardised = o.Standardised
	if o.RangeCheck != nil {
		opts.RangeCheck = *o.RangeCheck
	}
	if o.NAOmit != nil {
		opts.NAOmit = *o.NAOmit
	}
	return opts
}

// Impute handles POST /api/impute/{analyte}.
func (h *ImputationHandler) Impute(w http.ResponseWriter, r *http.Request) {
	analyte, _ := impute.ParseAnalyte(chi.URLParam(r, "analyte"))

	var req imputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error()))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("predictors", "Predictors must be a non-empty mapping of measurement names to vectors"))
		return
	}

	result, err := h.service.Impute(r.Context(), analyte, impute.Panel(req.Predictors), req.Options.toEngine())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// ImputeAll handles POST /api/impute: every analyte whose predictors the
// panel covers.
func (h *ImputationHandler) ImputeAll(w http.ResponseWriter, r *http.Request) {
	var req imputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error()))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("predictors", "Predictors must be a non-empty mapping of measurement names to vectors"))
		return
	}

	results, err := h.service.ImputeAll(r.Context(), impute.Panel(req.Predictors), req.Options.toEngine())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"results": results})
}

// ImputeFile handles POST /api/impute/{analyte}/file: a multipart upload
// with the panel in the "panel" field as .xlsx or .csv. With format=csv
// the imputed concentrations come back as a CSV attachment instead of
// JSON.
func (h *ImputationHandler) ImputeFile(w http.ResponseWriter, r *http.Request) {
	analyte, _ := impute.ParseAnalyte(chi.URLParam(r, "analyte"))

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile("panel")
	if err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("panel", "The panel file field is required"))
		return
	}
	defer file.Close()

	var panel impute.Panel
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".xlsx":
		panel, err = dataprocessing.ParsePanelXLSX(file)
	case ".csv":
		panel, err = dataprocessing.ParsePanelCSV(file)
	default:
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest, "UNSUPPORTED_FORMAT",
			"Unsupported panel format", fmt.Sprintf("file %q must be .xlsx or .csv", header.Filename)))
		return
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest, "INVALID_PANEL", "Panel file could not be parsed", err.Error()))
		return
	}

	opts := impute.DefaultOptions()
	opts.Standardised = r.URL.Query().Get("standardised") == "true"
	if r.URL.Query().Get("range_check") == "false" {
		opts.RangeCheck = false
	}
	if r.URL.Query().Get("na_omit") == "false" {
		opts.NAOmit = false
	}

	result, err := h.service.Impute(r.Context(), analyte, panel, opts)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", strings.ToLower(result.Analyte.String())))
		if err := dataprocessing.WriteResultCSV(w, result); err != nil {
			h.logger.ErrorContext(r.Context(), "csv export failed", slog.String("error", err.Error()))
		}
		return
	}
	render.JSON(w, r, result)
}

// GetRanges handles GET /api/reference/ranges.
func (h *ImputationHandler) GetRanges(w http.ResponseWriter, r *http.Request) {
	entries := h.ref.Measurements()
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Measurement < entries[j].Measurement
	})
	render.JSON(w, r, map[string]interface{}{
		"version":      impute.ReferenceVersion,
		"measurements": entries,
	})
}
