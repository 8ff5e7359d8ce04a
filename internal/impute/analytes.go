package impute

// Measurement names with special handling in the sanitizer and predictor.
const (
	MeasurementSex = "Sex"
	MeasurementAge = "Age"
	MeasurementBMI = "BMI"
)

// zeroSubstitutionExempt lists measurements whose zero readings are genuine
// values rather than below-detection-limit instrument codes.
var zeroSubstitutionExempt = map[string]bool{
	MeasurementSex: true,
	MeasurementAge: true,
	MeasurementBMI: true,
}

// analyteConfig is the complete per-analyte parameterization of the
// imputation pipeline. Analytes differ only in this data; they share every
// code path.
type analyteConfig struct {
	analyte Analyte
	// predictors in model term order.
	predictors []string
	// linear terms enter the weighted sum without a log transform.
	linear map[string]bool
	// caveat, when set, is emitted as a warning on every call.
	caveat string
}

// tfCaveat documents a known model-fit limitation, not a data-driven check.
const tfCaveat = "transferrin imputation is of markedly lower reliability than the other analytes; interpret predictions with caution"

var analyteConfigs = map[Analyte]analyteConfig{
	AnalyteAAT: {
		analyte: AnalyteAAT,
		predictors: []string{
			"GlycA", "Ala", "Gln", "Gly", "His", "Ile", "Leu", "Val",
			"Phe", "Tyr", "Lac", "Cit", "Crea", "Alb", "ApoA1", "ApoB",
			"HDL_C", "Serum_TG",
		},
	},
	AnalyteAGP: {
		analyte: AnalyteAGP,
		predictors: []string{
			"GlycA", "Age", "BMI", "Ala", "Gln", "His", "Ile", "Leu",
			"Phe", "Tyr", "Alb", "ApoA1", "HDL_C", "Serum_TG",
		},
		linear: map[string]bool{MeasurementAge: true},
	},
	AnalyteHP: {
		analyte: AnalyteHP,
		predictors: []string{
			"GlycA", "Age", "BMI", "Ala", "Gly", "His", "Leu", "Val",
			"Phe", "Tyr", "Lac", "Alb", "ApoA1", "ApoB", "LDL_C",
			"Serum_TG",
		},
		linear: map[string]bool{MeasurementAge: true},
	},
	AnalyteTF: {
		analyte: AnalyteTF,
		predictors: []string{
			"GlycA", "Age", "Sex", "His", "Phe", "Tyr", "Alb", "ApoB",
			"LDL_C", "Serum_C",
		},
		linear: map[string]bool{MeasurementAge: true, MeasurementSex: true},
		caveat: tfCaveat,
	},
}

// Predictors returns the predictor names an analyte's model expects, in
// model term order.
func Predictors(analyte Analyte) []string {
	cfg, ok := analyteConfigs[analyte]
	if !ok {
		return nil
	}
	out := make([]string, len(cfg.predictors))
	copy(out, cfg.predictors)
	return out
}
