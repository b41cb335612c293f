// Package config provides configuration loading for the phi batch tools.
//
// Configuration is assembled from three sources, later ones winning:
//
//	1. Default() values
//	2. An optional YAML file (phi.yaml, configs/phi.yaml or -config)
//	3. Environment variables prefixed with PHI_
//
// Nested sections map to underscore-joined variable names:
//
//	PHI_LOGGING_LEVEL=debug
//	PHI_COMPUTE_METHOD=logreg
//	PHI_COMPUTE_TAU=2
//	PHI_COMPUTE_INTERACTION_ORDER=2
//	PHI_REGRESSION_C=0.5
//	PHI_TELEMETRY_METRICS_ADDR=:9090
//
// Command-line flags of the individual tools override the loaded values.
// The resulting Config is validated with go-playground/validator struct tags.
package config
