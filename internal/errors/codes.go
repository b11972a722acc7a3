// Package errors provides structured error handling for the gazetteer.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Input errors (snapshot, feature records)
//   - 3XX: Baseline errors
//   - 4XX: Resource errors (output paths, store I/O)
//   - 5XX: Internal and network errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryInput indicates malformed snapshot or record errors.
	CategoryInput Category = "INPUT"
	// CategoryBaseline indicates baseline-load errors.
	CategoryBaseline Category = "BASELINE"
	// CategoryResource indicates file and store I/O errors.
	CategoryResource Category = "RESOURCE"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates the current build or diff run must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Input errors (200-299)
	ErrCodeSnapshotNotFound = "ERR_201_SNAPSHOT_NOT_FOUND"
	ErrCodeMalformedRecord  = "ERR_202_MALFORMED_RECORD"
	ErrCodeDuplicateID      = "ERR_203_DUPLICATE_ID"

	// Baseline errors (300-399)
	ErrCodeBaselineColumns = "ERR_301_BASELINE_COLUMNS"
	ErrCodeBaselineRow     = "ERR_302_BASELINE_ROW"

	// Resource errors (400-499)
	ErrCodeOutputPath = "ERR_401_OUTPUT_PATH"
	ErrCodeStoreOpen  = "ERR_402_STORE_OPEN"
	ErrCodeStoreWrite = "ERR_403_STORE_WRITE"
	ErrCodeStoreLock  = "ERR_404_STORE_LOCK"

	// Internal and network errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeCatalogFetch = "ERR_502_CATALOG_FETCH"
)

// categoryFromCode derives the category from the code's number block.
func categoryFromCode(code string) Category {
	if len(code) < 5 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryInput
	case '3':
		return CategoryBaseline
	case '4':
		return CategoryResource
	default:
		return CategoryInternal
	}
}

// severityFromCode derives the severity from the code. Only single-row
// baseline failures are warnings; everything else aborts the run.
func severityFromCode(code string) Severity {
	if code == ErrCodeBaselineRow {
		return SeverityWarning
	}
	return SeverityFatal
}
