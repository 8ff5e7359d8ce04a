// Package services provides the imputation service layer: engine
// orchestration, multi-analyte fan-out, and operational metrics.
package services

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"glycoimpute/internal/impute"
)

var (
	imputationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glyco_imputations_total",
		Help: "Number of imputation calls by analyte and mode.",
	}, []string{"analyte", "standardised"})

	imputedSamplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glyco_imputed_samples_total",
		Help: "Number of samples that received a non-missing imputed value.",
	}, []string{"analyte"})

	filteredValuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glyco_filtered_values_total",
		Help: "Number of values set to missing by range filtering, by stage.",
	}, []string{"analyte", "stage"})
)

// ImputationService coordinates engine calls for the transport layer.
type ImputationService struct {
	engine *impute.Engine
	logger *slog.Logger
}

// NewImputationService creates the service over a ready engine.
func NewImputationService(engine *impute.Engine, logger *slog.Logger) *ImputationService {
	return &ImputationService{
		engine: engine,
		logger: logger.With(slog.String("component", "imputation_service")),
	}
}

// Impute runs one analyte and records operational metrics.
func (s *ImputationService) Impute(ctx context.Context, analyte impute.Analyte, panel impute.Panel, opts impute.Options) (*impute.Result, error) {
	result, err := s.engine.Impute(ctx, analyte, panel, opts)
	if err != nil {
		return nil, err
	}
	s.record(result, opts)
	return result, nil
}

// ImputeAll runs every analyte whose predictors the panel covers
// concurrently and returns their results keyed by analyte. Analytes the
// panel cannot serve are skipped and reported; a non-contract error from
// any analyte fails the whole call.
func (s *ImputationService) ImputeAll(ctx context.Context, panel impute.Panel, opts impute.Options) (map[impute.Analyte]*impute.Result, error) {
	analytes := impute.Analytes()
	results := make([]*impute.Result, len(analytes))

	var mu sync.Mutex
	skipped := make(map[impute.Analyte]error)

	g, gctx := errgroup.WithContext(ctx)
	for i, analyte := range analytes {
		i, analyte := i, analyte
		g.Go(func() error {
			covered := true
			for _, name := range impute.Predictors(analyte) {
				if _, ok := panel[name]; !ok {
					covered = false
					break
				}
			}
			if !covered {
				mu.Lock()
				skipped[analyte] = nil
				mu.Unlock()
				return nil
			}

			result, err := s.Impute(gctx, analyte, panel, opts)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[impute.Analyte]*impute.Result, len(analytes))
	for i, analyte := range analytes {
		if results[i] != nil {
			out[analyte] = results[i]
		}
	}
	for analyte := range skipped {
		s.logger.InfoContext(ctx, "analyte skipped: panel does not cover its predictors",
			slog.String("analyte", analyte.String()),
		)
	}
	return out, nil
}

func (s *ImputationService) record(result *impute.Result, opts impute.Options) {
	analyte := result.Analyte.String()
	imputationsTotal.WithLabelValues(analyte, strconv.FormatBool(opts.Standardised)).Inc()
	imputedSamplesTotal.WithLabelValues(analyte).Add(float64(result.Imputed))

	for _, d := range result.Diagnostics {
		if d.Count == 0 {
			continue
		}
		stage := "input"
		if d.Measurement == analyte {
			stage = "output"
		}
		filteredValuesTotal.WithLabelValues(analyte, stage).Add(float64(d.Count))
	}
}
