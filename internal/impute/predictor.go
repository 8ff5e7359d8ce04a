package impute

import (
	"math"
)

// linearPredictor computes intercept + sum of coefficient x transformed
// predictor for one analyte over n samples. Missingness propagates: any
// sample with a missing term after sanitization yields a missing sum.
//
// In raw mode every predictor outside the config's linear set is
// log-transformed after sanitization; log of a non-positive value is
// missing. In standardised mode no transform and no input range filtering
// apply, since raw-scale bounds are meaningless for centered covariates.
func linearPredictor(cfg analyteConfig, set Coefficients, ref *Reference, panel Panel, n int, opts Options) (Vector, []Diagnostic) {
	sanitizeOpts := opts
	if opts.Standardised {
		sanitizeOpts.RangeCheck = false
	}

	sum := make(Vector, n)
	for i := range sum {
		sum[i] = Some(set.Intercept)
	}

	var diags []Diagnostic
	for _, name := range cfg.predictors {
		entry, _ := ref.Range(name)
		cleaned, filtered := sanitize(panel[name], entry, sanitizeOpts)
		if filtered > 0 {
			diags = append(diags, inputFilterDiagnostic(name, filtered))
		}

		coeff := set.Terms[name]
		logTransform := !opts.Standardised && !cfg.linear[name]

		for i, m := range cleaned {
			if !sum[i].Valid {
				continue
			}
			term := m
			if logTransform {
				term = logMeasurement(m)
			}
			if !term.Valid {
				sum[i] = Missing()
				continue
			}
			sum[i] = Some(sum[i].Value + coeff*term.Value)
		}
	}
	return sum, diags
}

// logMeasurement is the missing-aware natural log. Non-positive values have
// no log-scale representation and become missing; with range checking
// enabled they have normally been filtered or zero-substituted already.
func logMeasurement(m Measurement) Measurement {
	if !m.Valid || m.Value <= 0 {
		return Missing()
	}
	return Some(math.Log(m.Value))
}

func inputFilterDiagnostic(name string, count int) Diagnostic {
	if name == MeasurementSex {
		// Sex miscoding is a data-quality signal, not routine filtering.
		return Diagnostic{
			Severity:    SeverityWarning,
			Measurement: name,
			Count:       count,
			Message:     "measurements with miscoded Sex set to missing",
		}
	}
	return Diagnostic{
		Severity:    SeverityNotice,
		Measurement: name,
		Count:       count,
		Message:     "input measurements outside acceptable range set to missing",
	}
}

// standardize rescales the non-missing entries of a vector to sample mean 0
// and sample standard deviation 1. Missing entries stay missing. When the
// deviation is zero or fewer than two entries are present, non-missing
// entries collapse to 0.
func standardize(values Vector) Vector {
	out := values.Clone()

	mean, ok := meanValid(out)
	if !ok {
		return out
	}
	sd := stdDevValid(out, mean)

	for i, m := range out {
		if !m.Valid {
			continue
		}
		if sd > 0 {
			out[i] = Some((m.Value - mean) / sd)
		} else {
			out[i] = Some(0)
		}
	}
	return out
}

func meanValid(values Vector) (float64, bool) {
	sum := 0.0
	n := 0
	for _, m := range values {
		if m.Valid {
			sum += m.Value
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// stdDevValid computes the sample standard deviation over non-missing
// entries.
func stdDevValid(values Vector, mean float64) float64 {
	sumSq := 0.0
	n := 0
	for _, m := range values {
		if m.Valid {
			d := m.Value - mean
			sumSq += d * d
			n++
		}
	}
	if n <= 1 {
		return 0
	}
	return math.Sqrt(sumSq / float64(n-1))
}
