package impute

import (
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ReferenceVersion identifies the bundled reference data release.
const ReferenceVersion = "2024.1"

//go:embed data/ranges.csv data/coefficients.csv
var referenceData embed.FS

// Variant selects which fitted model a coefficient set belongs to.
type Variant string

const (
	// VariantRaw applies to log-transformed or linear covariates; the
	// prediction is exponentiated back to natural concentration units.
	VariantRaw Variant = "raw"
	// VariantStandardised applies to already-standardized covariates; the
	// prediction is re-standardized to a population-relative score.
	VariantStandardised Variant = "standardised"
)

// RangeEntry describes the reference population's observed distribution of
// one measurement. Units are display-only.
type RangeEntry struct {
	Measurement string  `json:"measurement"`
	Min         float64 `json:"min_val"`
	Median      float64 `json:"median_val"`
	Max         float64 `json:"max_val"`
	Units       string  `json:"units"`
}

// IsValid checks the ordering invariant min <= median <= max
func (re RangeEntry) IsValid() bool {
	return re.Measurement != "" && re.Min <= re.Median && re.Median <= re.Max
}

// Coefficients is one fitted model: an intercept plus a coefficient per
// predictor term.
type Coefficients struct {
	Intercept float64
	Terms     map[string]float64
}

// Reference bundles the range table and coefficient tables. It is loaded
// once, validated, and never mutated afterwards; concurrent readers need no
// locking.
type Reference struct {
	ranges map[string]RangeEntry
	coeffs map[Analyte]map[Variant]Coefficients
}

// LoadReference parses and validates the bundled reference data.
func LoadReference() (*Reference, error) {
	rangesFile, err := referenceData.Open("data/ranges.csv")
	if err != nil {
		return nil, fmt.Errorf("open bundled range table: %w", err)
	}
	defer rangesFile.Close()

	coeffFile, err := referenceData.Open("data/coefficients.csv")
	if err != nil {
		return nil, fmt.Errorf("open bundled coefficient table: %w", err)
	}
	defer coeffFile.Close()

	return loadReference(rangesFile, coeffFile)
}

// LoadReferenceFiles loads reference data from external CSV files instead
// of the bundled release. The files must use the bundled column layout.
func LoadReferenceFiles(rangesPath, coefficientsPath string) (*Reference, error) {
	rangesFile, err := os.Open(rangesPath)
	if err != nil {
		return nil, fmt.Errorf("open range table: %w", err)
	}
	defer rangesFile.Close()

	coeffFile, err := os.Open(coefficientsPath)
	if err != nil {
		return nil, fmt.Errorf("open coefficient table: %w", err)
	}
	defer coeffFile.Close()

	return loadReference(rangesFile, coeffFile)
}

func loadReference(rangesSrc, coeffSrc io.Reader) (*Reference, error) {
	ranges, err := parseRangeTable(rangesSrc)
	if err != nil {
		return nil, fmt.Errorf("parse range table: %w", err)
	}

	coeffs, err := parseCoefficientTable(coeffSrc)
	if err != nil {
		return nil, fmt.Errorf("parse coefficient table: %w", err)
	}

	ref := &Reference{ranges: ranges, coeffs: coeffs}
	if err := ref.validate(); err != nil {
		return nil, fmt.Errorf("validate reference data: %w", err)
	}
	return ref, nil
}

// Range returns the range entry for a measurement name.
func (r *Reference) Range(name string) (RangeEntry, bool) {
	entry, ok := r.ranges[name]
	return entry, ok
}

// Coefficients returns the fitted model for an analyte under the given
// variant.
func (r *Reference) Coefficients(analyte Analyte, variant Variant) (Coefficients, bool) {
	byVariant, ok := r.coeffs[analyte]
	if !ok {
		return Coefficients{}, false
	}
	c, ok := byVariant[variant]
	return c, ok
}

// Measurements returns all range entries, for reporting surfaces.
func (r *Reference) Measurements() []RangeEntry {
	out := make([]RangeEntry, 0, len(r.ranges))
	for _, entry := range r.ranges {
		out = append(out, entry)
	}
	return out
}

func parseRangeTable(src io.Reader) (map[string]RangeEntry, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = 5

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if header[0] != "measurement" {
		return nil, fmt.Errorf("unexpected header %q", header[0])
	}

	ranges := make(map[string]RangeEntry)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		entry := RangeEntry{Measurement: record[0], Units: record[4]}
		for i, dst := range []*float64{&entry.Min, &entry.Median, &entry.Max} {
			v, err := strconv.ParseFloat(record[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: parse %q: %w", line, record[i+1], err)
			}
			*dst = v
		}

		if _, dup := ranges[entry.Measurement]; dup {
			return nil, fmt.Errorf("line %d: duplicate measurement %q", line, entry.Measurement)
		}
		ranges[entry.Measurement] = entry
	}
	return ranges, nil
}

func parseCoefficientTable(src io.Reader) (map[Analyte]map[Variant]Coefficients, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = 4

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if header[0] != "analyte" {
		return nil, fmt.Errorf("unexpected header %q", header[0])
	}

	coeffs := make(map[Analyte]map[Variant]Coefficients)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		analyte := Analyte(record[0])
		variant := Variant(record[1])
		term := record[2]

		estimate, err := strconv.ParseFloat(record[3], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse estimate %q: %w", line, record[3], err)
		}

		if !analyte.IsValid() {
			return nil, fmt.Errorf("line %d: unknown analyte %q", line, record[0])
		}
		if variant != VariantRaw && variant != VariantStandardised {
			return nil, fmt.Errorf("line %d: unknown model variant %q", line, record[1])
		}

		byVariant, ok := coeffs[analyte]
		if !ok {
			byVariant = make(map[Variant]Coefficients)
			coeffs[analyte] = byVariant
		}
		set, ok := byVariant[variant]
		if !ok {
			set = Coefficients{Terms: make(map[string]float64)}
		}

		if term == "(Intercept)" {
			set.Intercept = estimate
		} else {
			if _, dup := set.Terms[term]; dup {
				return nil, fmt.Errorf("line %d: duplicate term %q for %s/%s", line, term, analyte, variant)
			}
			set.Terms[term] = estimate
		}
		byVariant[variant] = set
	}
	return coeffs, nil
}

// validate checks the reference invariants: ordered ranges, a range entry
// for every predictor and analyte, and coefficient term sets that exactly
// match each analyte's declared predictor list under both variants.
func (r *Reference) validate() error {
	for name, entry := range r.ranges {
		if !entry.IsValid() {
			return fmt.Errorf("range entry %q violates min <= median <= max", name)
		}
	}

	for _, analyte := range Analytes() {
		cfg, ok := analyteConfigs[analyte]
		if !ok {
			return fmt.Errorf("no configuration for analyte %s", analyte)
		}
		if _, ok := r.ranges[string(analyte)]; !ok {
			return fmt.Errorf("no range entry for analyte %s", analyte)
		}

		for _, variant := range []Variant{VariantRaw, VariantStandardised} {
			set, ok := r.Coefficients(analyte, variant)
			if !ok {
				return fmt.Errorf("no %s coefficients for analyte %s", variant, analyte)
			}
			if len(set.Terms) != len(cfg.predictors) {
				return fmt.Errorf("%s/%s: %d coefficient terms, config declares %d predictors",
					analyte, variant, len(set.Terms), len(cfg.predictors))
			}
			for _, name := range cfg.predictors {
				if _, ok := set.Terms[name]; !ok {
					return fmt.Errorf("%s/%s: no coefficient for predictor %q", analyte, variant, name)
				}
				if _, ok := r.ranges[name]; !ok {
					return fmt.Errorf("%s: no range entry for predictor %q", analyte, name)
				}
			}
		}
	}
	return nil
}
