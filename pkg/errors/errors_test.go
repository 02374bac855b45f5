package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := &Error{Type: ErrorTypeServerError, Message: "server error", Code: 503}
	assert.Equal(t, "server_error error (code 503): server error", err.Error())

	cause := errors.New("no such file")
	cfgErr := Configuration("cannot read address list", cause)
	assert.Equal(t, "configuration error: cannot read address list: no such file", cfgErr.Error())
	assert.ErrorIs(t, cfgErr, cause)
}

func TestTypeOf(t *testing.T) {
	wrapped := fmt.Errorf("saving checkpoint: %w", Persistence("write failed", nil))

	assert.Equal(t, ErrorTypePersistence, TypeOf(wrapped))
	assert.True(t, Is(wrapped, ErrorTypePersistence))
	assert.False(t, Is(wrapped, ErrorTypeConfiguration))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		want      bool
	}{
		{ErrorTypeNetwork, true},
		{ErrorTypeRateLimit, true},
		{ErrorTypeServerError, true},
		{ErrorTypeRemote, true},
		{ErrorTypeAuth, true},
		{ErrorTypeParsing, true},
		{ErrorTypeUnknown, true},
		{ErrorTypeConfiguration, false},
		{ErrorTypePersistence, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.errorType))
		})
	}
}

func TestIsRetryableStatusCode(t *testing.T) {
	assert.True(t, IsRetryableStatusCode(0))
	assert.True(t, IsRetryableStatusCode(429))
	assert.True(t, IsRetryableStatusCode(502))
	assert.True(t, IsRetryableStatusCode(599))
	assert.False(t, IsRetryableStatusCode(401))
	assert.False(t, IsRetryableStatusCode(404))
	assert.False(t, IsRetryableStatusCode(400))
}
