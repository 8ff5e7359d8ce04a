package impute

// sanitize runs the fixed three-step cleanup over one measurement vector:
// zero substitution, missing-value handling, range filtering. It returns a
// new vector of the same length together with the count of entries the
// range filter set to missing.
//
// Step order matters: a zero reading is first promoted to the reference
// minimum, so it passes the range filter rather than being discarded.
func sanitize(values Vector, entry RangeEntry, opts Options) (Vector, int) {
	out := values.Clone()

	// Step 1: zero substitution. Zero readings from the source instrument
	// encode "below detection limit", modeled as the known lower bound.
	// Raw mode only; Sex, Age and BMI are legitimate zeros or codings.
	if !opts.Standardised && !zeroSubstitutionExempt[entry.Measurement] {
		for i, m := range out {
			if m.Valid && m.Value == 0 {
				out[i] = Some(entry.Min)
			}
		}
	}

	// Step 2: missing-value handling. Standardised inputs are assumed
	// centered, so their neutral fill is zero; raw inputs fall back to the
	// reference median.
	if !opts.NAOmit {
		fill := entry.Median
		if opts.Standardised {
			fill = 0
		}
		for i, m := range out {
			if !m.Valid {
				out[i] = Some(fill)
			}
		}
	}

	// Step 3: range filtering.
	if !opts.RangeCheck {
		return out, 0
	}
	return filterRange(out, entry)
}

// filterRange sets entries outside the reference range to missing and
// returns the filtered count. Sex uses its discrete {1, 2} domain; all
// other measurements use the continuous [min, max] interval. Entries that
// are already missing are not counted.
func filterRange(values Vector, entry RangeEntry) (Vector, int) {
	out := values.Clone()
	filtered := 0
	for i, m := range out {
		if !m.Valid {
			continue
		}
		if outOfRange(m.Value, entry) {
			out[i] = Missing()
			filtered++
		}
	}
	return out, filtered
}

func outOfRange(v float64, entry RangeEntry) bool {
	if entry.Measurement == MeasurementSex {
		return v != 1 && v != 2
	}
	return v < entry.Min || v > entry.Max
}
