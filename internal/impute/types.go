package impute

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Analyte identifies one of the four imputed glycoproteins.
type Analyte string

const (
	// AnalyteAAT is alpha-1 antitrypsin (also written A1AT).
	AnalyteAAT Analyte = "AAT"
	// AnalyteAGP is alpha-1 acid glycoprotein.
	AnalyteAGP Analyte = "AGP"
	// AnalyteHP is haptoglobin.
	AnalyteHP Analyte = "HP"
	// AnalyteTF is transferrin.
	AnalyteTF Analyte = "TF"
)

// Analytes lists all supported analytes in canonical order.
func Analytes() []Analyte {
	return []Analyte{AnalyteAAT, AnalyteAGP, AnalyteHP, AnalyteTF}
}

// String returns the string representation of the analyte
func (a Analyte) String() string {
	return string(a)
}

// IsValid checks if the analyte is one of the four supported glycoproteins
func (a Analyte) IsValid() bool {
	switch a {
	case AnalyteAAT, AnalyteAGP, AnalyteHP, AnalyteTF:
		return true
	}
	return false
}

// ParseAnalyte converts a string to an Analyte, accepting the A1AT alias
// for AAT.
func ParseAnalyte(s string) (Analyte, error) {
	switch s {
	case "AAT", "A1AT":
		return AnalyteAAT, nil
	case "AGP":
		return AnalyteAGP, nil
	case "HP":
		return AnalyteHP, nil
	case "TF":
		return AnalyteTF, nil
	}
	return "", fmt.Errorf("unknown analyte %q", s)
}

// Measurement is a single observed value for one sample. Missing entries
// are explicit: Valid reports whether Value holds an observation. The zero
// Measurement is missing.
type Measurement struct {
	Value float64
	Valid bool
}

// Some returns a present measurement.
func Some(v float64) Measurement {
	return Measurement{Value: v, Valid: true}
}

// Missing returns a missing measurement.
func Missing() Measurement {
	return Measurement{}
}

// IsFinite reports whether the measurement is present and holds a finite
// number.
func (m Measurement) IsFinite() bool {
	return m.Valid && !math.IsNaN(m.Value) && !math.IsInf(m.Value, 0)
}

var jsonNull = []byte("null")

// MarshalJSON encodes a present measurement as a number and a missing one
// as null.
func (m Measurement) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return jsonNull, nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON decodes null as missing and any number as present.
func (m *Measurement) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*m = Missing()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("measurement must be a number or null: %w", err)
	}
	*m = Some(v)
	return nil
}

// Vector is an ordered sequence of measurements, one per sample.
type Vector []Measurement

// Values builds a vector of present measurements from raw floats.
func Values(vs ...float64) Vector {
	out := make(Vector, len(vs))
	for i, v := range vs {
		out[i] = Some(v)
	}
	return out
}

// CountValid returns the number of non-missing entries.
func (v Vector) CountValid() int {
	n := 0
	for _, m := range v {
		if m.Valid {
			n++
		}
	}
	return n
}

// Clone returns a copy of the vector.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Panel maps measurement names to sample vectors. All vectors consumed in
// one imputation call must have the same length.
type Panel map[string]Vector

// SampleCount returns the common vector length for the named measurements,
// or an error if any is absent or the lengths disagree.
func (p Panel) SampleCount(names []string) (int, error) {
	n := -1
	for _, name := range names {
		vec, ok := p[name]
		if !ok {
			return 0, fmt.Errorf("missing predictor %q", name)
		}
		if n == -1 {
			n = len(vec)
			continue
		}
		if len(vec) != n {
			return 0, fmt.Errorf("predictor length mismatch: %q has %d samples, expected %d", name, len(vec), n)
		}
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

// Options controls a single imputation call.
type Options struct {
	// RangeCheck enables filtering of input measurements and imputed
	// outputs against the reference population's min/max.
	RangeCheck bool
	// Standardised selects the standardized-linear model variant. Callers
	// are responsible for having log-transformed and centered/scaled their
	// inputs upstream.
	Standardised bool
	// NAOmit propagates missing entries through the prediction instead of
	// substituting the reference median (or zero in standardised mode).
	NAOmit bool
}

// DefaultOptions returns the standard configuration: range checking on,
// raw concentration scale, missing values propagated.
func DefaultOptions() Options {
	return Options{RangeCheck: true, Standardised: false, NAOmit: true}
}

// DiagnosticSeverity distinguishes routine notices from data-quality
// warnings.
type DiagnosticSeverity string

const (
	SeverityNotice  DiagnosticSeverity = "notice"
	SeverityWarning DiagnosticSeverity = "warning"
)

// Diagnostic is an advisory message emitted during imputation. Diagnostics
// never abort a call; the caller always receives a same-length result.
type Diagnostic struct {
	Severity    DiagnosticSeverity `json:"severity"`
	Measurement string             `json:"measurement,omitempty"`
	Count       int                `json:"count,omitempty"`
	Message     string             `json:"message"`
}

// Result holds the outcome of one imputation call.
type Result struct {
	Analyte     Analyte      `json:"analyte"`
	Values      Vector       `json:"values"`
	Samples     int          `json:"samples"`
	Imputed     int          `json:"imputed"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}
