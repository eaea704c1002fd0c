package sync

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeReason(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "query_token",
			in:   "GET https://api.example.com/search?q=mcp&token=abc123 failed",
			want: "GET https://api.example.com/search?q=mcp&token=REDACTED failed",
		},
		{
			name: "api_key_param",
			in:   `request failed: key=sk-live-000 status 403`,
			want: `request failed: key=REDACTED status 403`,
		},
		{
			name: "bearer_header",
			in:   "unexpected status with Authorization: Bearer abc.def-ghi= set",
			want: "unexpected status with Authorization: Bearer REDACTED set",
		},
		{
			name: "case_insensitive",
			in:   "PASSWORD=hunter2 rejected",
			want: "PASSWORD=REDACTED rejected",
		},
		{
			name: "clean_reason_untouched",
			in:   "connection refused",
			want: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sanitizeReason(tt.in))
		})
	}
}

func TestSanitizeReasonTruncates(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("x", maxFailureReason+200)
	assert.Len(t, sanitizeReason(long), maxFailureReason)
}

func TestSanitizeReasonTruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	// The single-byte prefix puts every two-byte rune at an odd offset, so
	// the naive cut would land mid-rune.
	long := "x" + strings.Repeat("é", maxFailureReason)
	got := sanitizeReason(long)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, maxFailureReason-1, len(got))
	assert.True(t, strings.HasSuffix(got, "é"))
}
