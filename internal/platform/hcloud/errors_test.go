package hcloud

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	apiErr := func(code hcloud.ErrorCode) error {
		return fmt.Errorf("wrapped: %w", hcloud.Error{Code: code, Message: string(code)})
	}

	tests := []struct {
		name        string
		err         error
		locked      bool
		invalid     bool
		notFound    bool
		rateLimited bool
	}{
		{"nil", nil, false, false, false, false},
		{"plain", errors.New("boom"), false, false, false, false},
		{"locked", apiErr(hcloud.ErrorCodeLocked), true, false, false, false},
		{"conflict", apiErr(hcloud.ErrorCodeConflict), true, false, false, false},
		{"not found", apiErr(hcloud.ErrorCodeNotFound), false, true, true, false},
		{"invalid input", apiErr(hcloud.ErrorCodeInvalidInput), false, true, false, false},
		{"rate limited", apiErr(hcloud.ErrorCodeRateLimitExceeded), false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.locked, isResourceLocked(tt.err))
			assert.Equal(t, tt.invalid, isInvalidParameter(tt.err))
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
			assert.Equal(t, tt.rateLimited, IsRateLimited(tt.err))
		})
	}
}

func TestBuildLabelSelector(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", buildLabelSelector(nil))
	assert.Equal(t, "a=1,b=2,c=3", buildLabelSelector(map[string]string{"c": "3", "a": "1", "b": "2"}))
}
