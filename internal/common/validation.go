package common

import (
	"fmt"
	"slices"

	"resumatch/internal/matching"
)

// ValidateOutputFormat validates format against configured supported formats.
// An empty list allows every format.
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 || slices.Contains(supportedFormats, format) {
		return nil
	}
	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ValidateWeightFlag rejects a command line weight outside [0, 1]. Unlike the
// HTTP body, where an out of range weight silently falls back to the default,
// a typo on the command line is reported.
func ValidateWeightFlag(w float64) error {
	if !matching.ValidWeight(w) {
		return fmt.Errorf("--weight must be between 0 and 1, got %v", w)
	}
	return nil
}
