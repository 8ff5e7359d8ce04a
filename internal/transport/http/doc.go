// Package http provides the REST surface of the imputation service.
//
// Endpoints:
//
//	POST /api/impute                 impute every analyte the panel covers
//	POST /api/impute/{analyte}       impute one analyte from a JSON panel
//	POST /api/impute/{analyte}/file  impute one analyte from an uploaded
//	                                 .xlsx or .csv panel; format=csv
//	                                 returns the result as a CSV attachment
//	GET  /api/reference/ranges       the bundled measurement range table
//	GET  /api/healthz                liveness and reference data version
//	GET  /metrics                    Prometheus scrape endpoint
//
// Panels are JSON objects mapping measurement names to arrays of numbers,
// with null marking missing entries. Errors are RFC 7807 problem+json.
package http
