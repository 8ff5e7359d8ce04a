package impute

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	ref, err := LoadReference()
	require.NoError(t, err)
	return NewEngine(ref, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// medianPanel builds a panel with every predictor of the analyte at its
// reference median, repeated for n samples.
func medianPanel(t *testing.T, e *Engine, analyte Analyte, n int) Panel {
	t.Helper()
	panel := make(Panel)
	for _, name := range Predictors(analyte) {
		entry, ok := e.ref.Range(name)
		require.True(t, ok, "no range entry for %s", name)
		vec := make(Vector, n)
		for i := range vec {
			vec[i] = Some(entry.Median)
		}
		panel[name] = vec
	}
	return panel
}

func TestImputeMedianInputs(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	// With every predictor at its reference median, the fitted models
	// reproduce the analyte's reference median concentration.
	tests := []struct {
		analyte Analyte
		want    float64
	}{
		{AnalyteAAT, 1.33},
		{AnalyteAGP, 0.77},
		{AnalyteHP, 1.07},
		{AnalyteTF, 2.57},
	}

	for _, tt := range tests {
		t.Run(tt.analyte.String(), func(t *testing.T) {
			panel := medianPanel(t, e, tt.analyte, 3)
			result, err := e.Impute(ctx, tt.analyte, panel, DefaultOptions())
			require.NoError(t, err)

			assert.Equal(t, 3, result.Samples)
			assert.Equal(t, 3, result.Imputed)
			entry, _ := e.ref.Range(tt.analyte.String())
			for i, m := range result.Values {
				require.True(t, m.IsFinite(), "sample %d", i)
				assert.InDelta(t, tt.want, m.Value, 1e-4)
				assert.GreaterOrEqual(t, m.Value, entry.Min)
				assert.LessOrEqual(t, m.Value, entry.Max)
			}
		})
	}
}

func TestImputeLengthInvariance(t *testing.T) {
	e := newTestEngine(t)

	for _, n := range []int{1, 7} {
		panel := medianPanel(t, e, AnalyteAGP, n)
		result, err := e.ImputeAGP(context.Background(), panel, DefaultOptions())
		require.NoError(t, err)
		assert.Len(t, result.Values, n)
	}
}

func TestImputeLengthMismatch(t *testing.T) {
	e := newTestEngine(t)

	panel := medianPanel(t, e, AnalyteAAT, 3)
	panel["GlycA"] = Values(1.26, 1.26)

	_, err := e.ImputeAAT(context.Background(), panel, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "length mismatch")
}

func TestImputeUnknownAnalyte(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Impute(context.Background(), Analyte("CRP"), Panel{}, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown analyte")
}

func TestImputeZeroSubstitution(t *testing.T) {
	// A GlycA reading of exactly 0 is treated identically to a reading at
	// the reference minimum 0.869.
	e := newTestEngine(t)
	ctx := context.Background()

	zeroPanel := medianPanel(t, e, AnalyteAAT, 1)
	zeroPanel["GlycA"] = Values(0)
	minPanel := medianPanel(t, e, AnalyteAAT, 1)
	minPanel["GlycA"] = Values(0.869)

	fromZero, err := e.ImputeAAT(ctx, zeroPanel, DefaultOptions())
	require.NoError(t, err)
	fromMin, err := e.ImputeAAT(ctx, minPanel, DefaultOptions())
	require.NoError(t, err)

	require.True(t, fromZero.Values[0].Valid)
	assert.Equal(t, fromMin.Values[0], fromZero.Values[0])
}

func TestImputeMissingHandling(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	t.Run("na_omit true propagates to output", func(t *testing.T) {
		panel := medianPanel(t, e, AnalyteHP, 2)
		panel["GlycA"] = Vector{Missing(), Some(1.26)}

		result, err := e.ImputeHP(ctx, panel, DefaultOptions())
		require.NoError(t, err)
		assert.False(t, result.Values[0].Valid)
		assert.True(t, result.Values[1].Valid)
		assert.Equal(t, 1, result.Imputed)
	})

	t.Run("na_omit false substitutes the median", func(t *testing.T) {
		panel := medianPanel(t, e, AnalyteHP, 1)
		panel["GlycA"] = Vector{Missing()}

		opts := DefaultOptions()
		opts.NAOmit = false
		result, err := e.ImputeHP(ctx, panel, opts)
		require.NoError(t, err)
		require.True(t, result.Values[0].IsFinite())
		assert.InDelta(t, 1.07, result.Values[0].Value, 1e-4)
	})
}

func TestImputeInputRangeFiltering(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	panel := medianPanel(t, e, AnalyteAAT, 2)
	panel["Serum_TG"] = Values(25.0, 1.12) // sample 0 far above reference max

	t.Run("enabled", func(t *testing.T) {
		result, err := e.ImputeAAT(ctx, panel, DefaultOptions())
		require.NoError(t, err)
		assert.False(t, result.Values[0].Valid)
		assert.True(t, result.Values[1].Valid)

		var found *Diagnostic
		for i := range result.Diagnostics {
			if result.Diagnostics[i].Measurement == "Serum_TG" {
				found = &result.Diagnostics[i]
			}
		}
		require.NotNil(t, found)
		assert.Equal(t, SeverityNotice, found.Severity)
		assert.Equal(t, 1, found.Count)
	})

	t.Run("disabled", func(t *testing.T) {
		opts := DefaultOptions()
		opts.RangeCheck = false
		result, err := e.ImputeAAT(ctx, panel, opts)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Imputed)
	})
}

func TestImputeOutputRangeFiltering(t *testing.T) {
	// Every input is individually inside its reference range, but the
	// combination drives the back-transformed AAT prediction above the
	// analyte maximum of 2.58.
	e := newTestEngine(t)
	ctx := context.Background()

	extreme := map[string]float64{
		"GlycA": 2.24, "Ala": 0.18, "Gln": 0.28, "Gly": 0.56,
		"His": 0.101, "Ile": 0.119, "Leu": 0.131, "Val": 0.306,
		"Phe": 0.041, "Tyr": 0.106, "Lac": 4.13, "Cit": 0.24,
		"Crea": 0.024, "Alb": 0.134, "ApoA1": 2.22, "ApoB": 1.75,
		"HDL_C": 2.73, "Serum_TG": 4.31,
	}
	panel := make(Panel, len(extreme))
	for name, v := range extreme {
		panel[name] = Values(v)
	}

	t.Run("implausible prediction is discarded", func(t *testing.T) {
		result, err := e.ImputeAAT(ctx, panel, DefaultOptions())
		require.NoError(t, err)
		assert.False(t, result.Values[0].Valid)
		assert.Equal(t, 0, result.Imputed)

		var found *Diagnostic
		for i := range result.Diagnostics {
			if result.Diagnostics[i].Measurement == "AAT" {
				found = &result.Diagnostics[i]
			}
		}
		require.NotNil(t, found, "expected an imputed-output filtering notice")
		assert.Equal(t, 1, found.Count)
		assert.Contains(t, found.Message, "imputed")
	})

	t.Run("range_check false keeps the prediction", func(t *testing.T) {
		opts := DefaultOptions()
		opts.RangeCheck = false
		result, err := e.ImputeAAT(ctx, panel, opts)
		require.NoError(t, err)
		require.True(t, result.Values[0].IsFinite())
		assert.InDelta(t, 3.4925, result.Values[0].Value, 1e-4)
	})
}

func TestImputeSexMiscoding(t *testing.T) {
	e := newTestEngine(t)

	panel := medianPanel(t, e, AnalyteTF, 2)
	panel["Sex"] = Values(3, 2)

	result, err := e.ImputeTF(context.Background(), panel, DefaultOptions())
	require.NoError(t, err)

	assert.False(t, result.Values[0].Valid)
	require.True(t, result.Values[1].IsFinite())
	assert.InDelta(t, 2.43673, result.Values[1].Value, 1e-4)

	var warning *Diagnostic
	for i := range result.Diagnostics {
		if result.Diagnostics[i].Measurement == MeasurementSex {
			warning = &result.Diagnostics[i]
		}
	}
	require.NotNil(t, warning)
	assert.Equal(t, SeverityWarning, warning.Severity)
	assert.Equal(t, 1, warning.Count)
}

func TestImputeTFCaveat(t *testing.T) {
	e := newTestEngine(t)

	result, err := e.ImputeTF(context.Background(), medianPanel(t, e, AnalyteTF, 1), DefaultOptions())
	require.NoError(t, err)

	found := false
	for _, d := range result.Diagnostics {
		if d.Severity == SeverityWarning && d.Message == tfCaveat {
			found = true
		}
	}
	assert.True(t, found, "TF must always carry its reliability caveat")
}

func TestImputeStandardised(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	// Pseudo-standardized inputs: arbitrary z-scores per predictor.
	zs := []float64{-1.3, -0.6, -0.1, 0.2, 0.4, 0.9, 1.5}
	panel := make(Panel)
	for i, name := range Predictors(AnalyteAGP) {
		vec := make(Vector, len(zs))
		for j, z := range zs {
			vec[j] = Some(z + 0.1*float64(i))
		}
		panel[name] = vec
	}

	opts := Options{Standardised: true, RangeCheck: true, NAOmit: true}
	result, err := e.ImputeAGP(ctx, panel, opts)
	require.NoError(t, err)
	require.Equal(t, len(zs), result.Imputed)

	mean, ok := meanValid(result.Values)
	require.True(t, ok)
	assert.InDelta(t, 0, mean, 1e-10)
	assert.InDelta(t, 1, stdDevValid(result.Values, mean), 1e-10)
}

func TestImputeGoldenMixedSample(t *testing.T) {
	e := newTestEngine(t)

	panel := medianPanel(t, e, AnalyteAGP, 1)
	panel["GlycA"] = Values(1.8)
	panel["Age"] = Values(63)
	panel["BMI"] = Values(31.2)
	panel["Serum_TG"] = Values(2.4)

	result, err := e.ImputeAGP(context.Background(), panel, DefaultOptions())
	require.NoError(t, err)
	require.True(t, result.Values[0].IsFinite())
	assert.InDelta(t, 1.04884, result.Values[0].Value, 1e-4)
}

func TestImputeAllMissingDegradesGracefully(t *testing.T) {
	e := newTestEngine(t)

	panel := make(Panel)
	for _, name := range Predictors(AnalyteAAT) {
		panel[name] = Vector{Missing(), Missing()}
	}

	result, err := e.ImputeAAT(context.Background(), panel, DefaultOptions())
	require.NoError(t, err, "all-missing input is expected behavior, not an error")
	assert.Equal(t, 0, result.Imputed)
	assert.Len(t, result.Values, 2)
}
