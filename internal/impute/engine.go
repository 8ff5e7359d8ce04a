package impute

import (
	"context"
	"fmt"
	"log/slog"
)

// Engine runs the shared validation and imputation pipeline. It holds only
// immutable reference data and a logger, so one Engine serves unlimited
// concurrent callers.
type Engine struct {
	ref    *Reference
	logger *slog.Logger
}

// NewEngine creates an imputation engine over loaded reference data.
func NewEngine(ref *Reference, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		ref:    ref,
		logger: logger.With(slog.String("component", "impute_engine")),
	}
}

// Impute predicts one analyte's concentration for every sample in the
// panel. The panel must contain a vector for each of the analyte's
// predictors (extra measurements are ignored), and all predictor vectors
// must have equal length; a mismatch is a caller contract violation and
// fails fast.
//
// Out-of-range and missing data never fail: they degrade to missing output
// entries, reported through Result.Diagnostics and the engine's logger.
func (e *Engine) Impute(ctx context.Context, analyte Analyte, panel Panel, opts Options) (*Result, error) {
	cfg, ok := analyteConfigs[analyte]
	if !ok {
		return nil, fmt.Errorf("unknown analyte %q", analyte)
	}

	n, err := panel.SampleCount(cfg.predictors)
	if err != nil {
		return nil, fmt.Errorf("impute %s: %w", analyte, err)
	}

	variant := VariantRaw
	if opts.Standardised {
		variant = VariantStandardised
	}
	set, ok := e.ref.Coefficients(analyte, variant)
	if !ok {
		return nil, fmt.Errorf("impute %s: no %s coefficients in reference data", analyte, variant)
	}

	sum, diags := linearPredictor(cfg, set, e.ref, panel, n, opts)

	var values Vector
	if opts.Standardised {
		values = standardize(sum)
	} else {
		entry, _ := e.ref.Range(string(analyte))
		var outDiags []Diagnostic
		values, outDiags = backTransform(sum, entry, opts)
		diags = append(diags, outDiags...)
	}

	if cfg.caveat != "" {
		diags = append(diags, Diagnostic{Severity: SeverityWarning, Message: cfg.caveat})
	}

	result := &Result{
		Analyte:     analyte,
		Values:      values,
		Samples:     n,
		Imputed:     values.CountValid(),
		Diagnostics: diags,
	}
	e.report(ctx, result, opts)
	return result, nil
}

// ImputeAAT imputes alpha-1 antitrypsin from its 18 NMR predictors.
func (e *Engine) ImputeAAT(ctx context.Context, panel Panel, opts Options) (*Result, error) {
	return e.Impute(ctx, AnalyteAAT, panel, opts)
}

// ImputeAGP imputes alpha-1 acid glycoprotein; Age enters the model
// linearly.
func (e *Engine) ImputeAGP(ctx context.Context, panel Panel, opts Options) (*Result, error) {
	return e.Impute(ctx, AnalyteAGP, panel, opts)
}

// ImputeHP imputes haptoglobin; Age enters the model linearly.
func (e *Engine) ImputeHP(ctx context.Context, panel Panel, opts Options) (*Result, error) {
	return e.Impute(ctx, AnalyteHP, panel, opts)
}

// ImputeTF imputes transferrin; Age and Sex enter the model linearly. Every
// call emits a fixed caveat about the model's lower reliability.
func (e *Engine) ImputeTF(ctx context.Context, panel Panel, opts Options) (*Result, error) {
	return e.Impute(ctx, AnalyteTF, panel, opts)
}

// report emits the advisory diagnostics and the success summary.
func (e *Engine) report(ctx context.Context, result *Result, opts Options) {
	for _, d := range result.Diagnostics {
		attrs := []any{
			slog.String("analyte", result.Analyte.String()),
		}
		if d.Measurement != "" {
			attrs = append(attrs, slog.String("measurement", d.Measurement))
		}
		if d.Count > 0 {
			attrs = append(attrs, slog.Int("count", d.Count))
		}
		switch d.Severity {
		case SeverityWarning:
			e.logger.WarnContext(ctx, d.Message, attrs...)
		default:
			e.logger.InfoContext(ctx, d.Message, attrs...)
		}
	}

	e.logger.InfoContext(ctx, "imputation completed",
		slog.String("analyte", result.Analyte.String()),
		slog.Int("samples", result.Samples),
		slog.Int("imputed", result.Imputed),
		slog.Bool("standardised", opts.Standardised),
		slog.Bool("range_check", opts.RangeCheck),
	)
}
