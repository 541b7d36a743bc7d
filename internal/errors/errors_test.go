package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", fmt.Errorf("boom"), false},
		{"integrity", IntegrityErrorf("cycle at %s", "abc"), true},
		{"external", ExternalError(fmt.Errorf("timeout"), "feed"), false},
		{"wrapped integrity", fmt.Errorf("project x: %w", IntegrityErrorf("missing")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := DatabaseError(cause, "insert branch")
	require.NotNil(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "insert branch: connection refused", err.Error())
	assert.Equal(t, ErrorTypeDatabase, GetType(err))
	assert.Equal(t, SeverityCritical, GetSeverity(err))

	assert.Nil(t, Wrap(nil, ErrorTypeDatabase, SeverityLow, "noop"))
}

func TestDetailedString(t *testing.T) {
	err := IntegrityErrorf("commit graph has a cycle").
		WithContext("sha", "abc123").
		WithContext("branch", 2)
	s := err.DetailedString()
	assert.Contains(t, s, "[CRITICAL] [INTEGRITY] commit graph has a cycle")
	assert.Contains(t, s, "branch: 2")
	assert.Contains(t, s, "sha: abc123")
}
