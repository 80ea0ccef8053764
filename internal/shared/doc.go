// Package shared holds code used across packages that belongs to no single
// stage of the pipeline. Its testutil subpackage builds CSV extract fixtures
// and captures slog output in tests.
package shared
