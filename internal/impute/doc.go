// Package impute implements imputation of four serum glycoproteins (AAT,
// AGP, HP, TF) from panels of NMR metabolite measurements and clinical
// covariates (Age, Sex, BMI), using pre-fitted linear regression models.
//
// The package is built around a single generic engine that runs the same
// three-stage pipeline for every analyte:
//
//  1. Value sanitization: zero substitution for below-detection-limit
//     readings, missing-value substitution or omission, and range filtering
//     against a reference population's observed min/max.
//  2. Linear prediction: intercept + sum of coefficient x transformed
//     predictor, either log-linear (raw mode) or standardized-linear
//     (standardised mode).
//  3. Back-transformation: exponentiation and output range filtering in raw
//     mode, re-standardization in standardised mode.
//
// The four analytes are pure parameterizations of this pipeline: each is a
// declarative configuration of predictor names, linear-exempt terms, and a
// coefficient lookup key. There is no per-analyte code path.
//
// # Missing Values
//
// Missing entries are explicit (Measurement.Valid), never sentinel numbers.
// Any arithmetic touching a missing operand yields a missing result, so a
// single missing predictor makes that sample's output missing unless
// median substitution is requested via Options.NAOmit=false.
//
// # Reference Data
//
// The measurement range table and model coefficient tables are bundled with
// the package, loaded once via LoadReference, and never mutated. A loaded
// Reference is safe for unlimited concurrent readers.
//
// # Usage Example
//
//	ref, err := impute.LoadReference()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	engine := impute.NewEngine(ref, slog.Default())
//
//	panel := impute.Panel{
//	    "GlycA": impute.Values(1.26, 1.84, 0.93),
//	    "Age":   impute.Values(47, 63, 31),
//	    // ... remaining predictors
//	}
//
//	result, err := engine.ImputeAGP(ctx, panel, impute.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for i, m := range result.Values {
//	    if m.Valid {
//	        fmt.Printf("sample %d: %.3f mg/L\n", i, m.Value)
//	    }
//	}
//
// Out-of-range and missing data never cause errors; they degrade to missing
// output entries with advisory diagnostics. The only hard failure is a
// caller contract violation such as predictor vectors of unequal length.
package impute
