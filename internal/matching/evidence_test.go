package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractEvidence(t *testing.T) {
	resume := "Jordan Lee\nSenior recruiter in fintech. Managed sourcing for 12 engineers!\n" +
		"Loves hiking. Ran fintech meetups? Built recruiter tooling."

	t.Run("returns first three matching sentences", func(t *testing.T) {
		got := ExtractEvidence(resume, []string{"recruiter", "fintech", "sourcing"})
		assert.Equal(t, []string{
			"Senior recruiter in fintech",
			"Managed sourcing for 12 engineers",
			"Ran fintech meetups",
		}, got)
	})

	t.Run("matching is case insensitive on the sentence", func(t *testing.T) {
		got := ExtractEvidence("KUBERNETES operator work", []string{"kubernetes"})
		assert.Equal(t, []string{"KUBERNETES operator work"}, got)
	})

	t.Run("substring match counts", func(t *testing.T) {
		got := ExtractEvidence("Recruiters love data", []string{"recruiter"})
		assert.Equal(t, []string{"Recruiters love data"}, got)
	})

	t.Run("falls back to overlap terms", func(t *testing.T) {
		got := ExtractEvidence("", []string{"golang", "kafka", "redis", "grpc"})
		assert.Equal(t, []string{"golang", "kafka", "redis"}, got)
	})

	t.Run("empty overlap gives empty evidence", func(t *testing.T) {
		got := ExtractEvidence(resume, nil)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}
