package impute

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReference(t *testing.T) {
	ref, err := LoadReference()
	require.NoError(t, err)

	t.Run("range ordering invariant", func(t *testing.T) {
		for _, entry := range ref.Measurements() {
			assert.True(t, entry.IsValid(), "entry %s violates min <= median <= max", entry.Measurement)
		}
	})

	t.Run("documented bounds", func(t *testing.T) {
		glycA, ok := ref.Range("GlycA")
		require.True(t, ok)
		assert.InDelta(t, 0.869, glycA.Min, 1e-9)

		aat, ok := ref.Range("AAT")
		require.True(t, ok)
		assert.InDelta(t, 0.64, aat.Min, 1e-9)
		assert.InDelta(t, 2.58, aat.Max, 1e-9)
	})

	t.Run("coefficient terms match declared predictors", func(t *testing.T) {
		for _, analyte := range Analytes() {
			for _, variant := range []Variant{VariantRaw, VariantStandardised} {
				set, ok := ref.Coefficients(analyte, variant)
				require.True(t, ok, "%s/%s missing", analyte, variant)

				predictors := Predictors(analyte)
				assert.Len(t, set.Terms, len(predictors))
				for _, name := range predictors {
					assert.Contains(t, set.Terms, name, "%s/%s", analyte, variant)
				}
			}
		}
	})

	t.Run("predictor counts", func(t *testing.T) {
		assert.Len(t, Predictors(AnalyteAAT), 18)
		assert.Len(t, Predictors(AnalyteAGP), 14)
		assert.Len(t, Predictors(AnalyteHP), 16)
		assert.Len(t, Predictors(AnalyteTF), 10)
	})
}

func TestParseRangeTable(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:  "valid",
			input: "measurement,min_val,median_val,max_val,units\nGlycA,0.869,1.26,2.24,mmol/L\n",
		},
		{
			name:    "bad header",
			input:   "name,min,median,max,units\n",
			wantErr: "unexpected header",
		},
		{
			name:    "non-numeric bound",
			input:   "measurement,min_val,median_val,max_val,units\nGlycA,low,1.26,2.24,mmol/L\n",
			wantErr: "parse",
		},
		{
			name: "duplicate measurement",
			input: "measurement,min_val,median_val,max_val,units\n" +
				"GlycA,0.869,1.26,2.24,mmol/L\nGlycA,0.869,1.26,2.24,mmol/L\n",
			wantErr: "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRangeTable(strings.NewReader(tt.input))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseCoefficientTable(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:  "valid",
			input: "analyte,variant,term,estimate\nAAT,raw,(Intercept),0.5\nAAT,raw,GlycA,0.6\n",
		},
		{
			name:    "unknown analyte",
			input:   "analyte,variant,term,estimate\nCRP,raw,(Intercept),0.5\n",
			wantErr: "unknown analyte",
		},
		{
			name:    "unknown variant",
			input:   "analyte,variant,term,estimate\nAAT,robust,(Intercept),0.5\n",
			wantErr: "unknown model variant",
		},
		{
			name: "duplicate term",
			input: "analyte,variant,term,estimate\n" +
				"AAT,raw,GlycA,0.6\nAAT,raw,GlycA,0.7\n",
			wantErr: "duplicate term",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCoefficientTable(strings.NewReader(tt.input))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
