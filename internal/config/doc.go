// Package config loads and validates the taxtrend configuration.
//
// # Configuration Sources
//
// Configuration is assembled in the following order, later sources winning:
//
//	1. Default values (Default)
//	2. YAML file (explicit path, or config.yaml / configs/config.yaml)
//	3. Environment variables prefixed with TAXTREND_
//
// Nested keys map to environment variables by section:
//
//	TAXTREND_ANALYSIS_INITIAL_YEAR=2019
//	TAXTREND_PATHS_INPUT_DIR=/data/extracts
//	TAXTREND_LOGGING_LEVEL=debug
//
// analysis.initial_year has no default and must be provided.
//
// # Paths
//
// Relative paths are resolved against paths.base_dir, which defaults to the
// directory of the loaded config file (or the working directory when no file
// was found). Config.GetPaths returns the absolute locations.
//
// # Municipalities
//
// The municipality table maps municipality names, as they appear in the
// Nome_Cidade column, to short codes used in sheet names. A JSON file of
// {"CODE": "Name"} pairs replaces the built-in table.
package config
