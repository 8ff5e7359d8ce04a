package impute

import "math"

// backTransform converts a raw-mode log-scale prediction to natural
// concentration units and, when range checking is enabled, re-applies range
// filtering against the analyte's own reference entry. Predictions
// implausible relative to the training population are discarded rather
// than reported.
func backTransform(sum Vector, entry RangeEntry, opts Options) (Vector, []Diagnostic) {
	out := make(Vector, len(sum))
	for i, m := range sum {
		if !m.Valid {
			out[i] = Missing()
			continue
		}
		out[i] = Some(math.Exp(m.Value))
	}

	if !opts.RangeCheck {
		return out, nil
	}

	filtered := 0
	out, filtered = filterRange(out, entry)
	if filtered == 0 {
		return out, nil
	}
	return out, []Diagnostic{{
		Severity:    SeverityNotice,
		Measurement: entry.Measurement,
		Count:       filtered,
		Message:     "imputed measurements outside acceptable range set to missing",
	}}
}
