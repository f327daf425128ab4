package operations

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"dualfm/pkg/fileops"
)

func TestResultString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "partial", Partial.String())
	assert.Equal(t, "failure", Failure.String())
	assert.Equal(t, "unknown", Result(42).String())
}

func TestSummaryClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		successes int
		failures  int
		want      Result
	}{
		{"empty batch", 0, 0, Success},
		{"all succeed", 3, 0, Success},
		{"all fail", 0, 2, Failure},
		{"mixed", 2, 1, Partial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var s Summary
			for range tt.successes {
				s.ok()
			}
			for range tt.failures {
				s.fail("item", errors.New("boom"))
			}
			s.classify()

			assert.Equal(t, tt.want, s.Result)
			assert.Equal(t, tt.successes, s.SuccessCount)
			assert.Equal(t, tt.failures, s.ErrorCount)
			assert.Len(t, s.Errors, tt.failures)
		})
	}
}

func TestSummaryCancelledFlag(t *testing.T) {
	t.Parallel()

	var s Summary
	s.ok()
	s.fail("big.bin", fileops.ErrCancelled)
	s.classify()

	assert.True(t, s.Cancelled)
	assert.Equal(t, Partial, s.Result)

	var plain Summary
	plain.fail("a.txt", errors.New("disk full"))
	plain.classify()
	assert.False(t, plain.Cancelled)
}
