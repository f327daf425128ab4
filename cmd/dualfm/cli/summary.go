package cli

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"

	"dualfm/internal/operations"
	"dualfm/pkg/fileops"
)

// printSummary renders one batch outcome, tinted by result, with any
// per-item errors listed underneath.
func printSummary(w io.Writer, verb string, s operations.Summary) {
	out := termenv.NewOutput(w)

	var line termenv.Style
	switch {
	case s.Cancelled:
		line = out.String(fmt.Sprintf("%s cancelled: %d done, %d failed", verb, s.SuccessCount, s.ErrorCount)).
			Foreground(termenv.ANSIYellow)
	case s.Result == operations.Success:
		line = out.String(fmt.Sprintf("%s complete: %d item(s)", verb, s.SuccessCount)).
			Foreground(termenv.ANSIGreen)
	case s.Result == operations.Partial:
		line = out.String(fmt.Sprintf("%s partial: %d done, %d failed", verb, s.SuccessCount, s.ErrorCount)).
			Foreground(termenv.ANSIYellow)
	default:
		line = out.String(fmt.Sprintf("%s failed: %d error(s)", verb, s.ErrorCount)).
			Foreground(termenv.ANSIRed)
	}
	fmt.Fprintln(w, line)

	for _, ie := range s.Errors {
		fmt.Fprintf(w, "  %s: %v\n", ie.Item, ie.Err)
	}
}

// summaryErr converts a batch outcome into the command's error so the exit
// code reflects it. The detailed summary has already been printed.
func summaryErr(s operations.Summary) error {
	switch {
	case s.Cancelled:
		return fileops.ErrCancelled
	case s.Result == operations.Success:
		return nil
	default:
		return fmt.Errorf("%d of %d item(s) failed", s.ErrorCount, s.SuccessCount+s.ErrorCount)
	}
}
