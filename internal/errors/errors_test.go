package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without cause",
			err:  NewValidationError("tau must be positive", nil),
			want: "[VALIDATION] tau must be positive",
		},
		{
			name: "with cause",
			err:  NewParsingError("read npy header", fmt.Errorf("unexpected EOF")),
			want: "[PARSING] read npy header: unexpected EOF",
		},
		{
			name: "not found",
			err:  NewNotFoundError("data file"),
			want: "[NOT_FOUND] data file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := fmt.Errorf("outer: %w", NewComputeError("fit failed", sentinel))

	assert.True(t, errors.Is(err, sentinel))

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrTypeCompute, appErr.Type)
}

func TestAppError_WithContext(t *testing.T) {
	err := NewStorageError("write bundle", nil).
		WithContext("path", "results/0/00000001_phi.npz").
		WithContext("attempt", 1)

	assert.Equal(t, "results/0/00000001_phi.npz", err.Context["path"])
	assert.Equal(t, 1, err.Context["attempt"])

	bare := &AppError{Type: ErrTypeConfig}
	bare.WithContext("key", "value")
	assert.Equal(t, "value", bare.Context["key"])
}

func TestIsType(t *testing.T) {
	inner := NewValidationError("interaction order exceeds channel count", nil)
	outer := NewComputeError("build tpm", inner)

	assert.True(t, IsType(outer, ErrTypeCompute))
	assert.True(t, IsType(outer, ErrTypeValidation))
	assert.False(t, IsType(outer, ErrTypeStorage))
	assert.False(t, IsType(errors.New("plain"), ErrTypeValidation))
	assert.False(t, IsType(nil, ErrTypeValidation))
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "api error passes through",
			err:        ErrServiceUnavailable,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "SERVICE_UNAVAILABLE",
		},
		{
			name:       "not found app error",
			err:        NewNotFoundError("channel set"),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "validation app error",
			err:        fmt.Errorf("wrapped: %w", NewValidationError("bad tau", nil)),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION",
		},
		{
			name:       "plain error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_SERVER_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err)
			assert.Equal(t, tt.wantStatus, got.StatusCode)
			assert.Equal(t, tt.wantCode, got.ErrorCode)
		})
	}
}
