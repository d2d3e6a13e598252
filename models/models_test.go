package models

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlatformValid(t *testing.T) {
	for _, p := range AllPlatforms {
		assert.True(t, p.Valid(), string(p))
	}
	assert.False(t, Platform("myspace").Valid())
	assert.False(t, Platform("").Valid())
}

func TestContentLimit(t *testing.T) {
	assert.Equal(t, 280, ContentLimit(Twitter))
	assert.Equal(t, 63206, ContentLimit(Facebook))
	assert.Equal(t, DefaultContentLimit, ContentLimit(Platform("unknown")))

	assert.Equal(t, 0, MinContentLimit(nil))
	assert.Equal(t, 280, MinContentLimit([]Platform{LinkedIn, Twitter, YouTube}))
	assert.Equal(t, 2200, MinContentLimit([]Platform{Instagram, Facebook}))
}

func TestExceedsLimit(t *testing.T) {
	content := strings.Repeat("a", 300)
	assert.Equal(t, []Platform{Twitter}, ExceedsLimit(content, []Platform{LinkedIn, Twitter}))
	assert.Empty(t, ExceedsLimit("short", AllPlatforms))
}

func TestPostStatusFinal(t *testing.T) {
	assert.True(t, StatusPublished.Final())
	assert.True(t, StatusFailed.Final())
	assert.False(t, StatusScheduled.Final())
	assert.False(t, StatusDraft.Final())
}

func TestExternalServiceErrorUnwrap(t *testing.T) {
	cause := errors.New("rate limited")
	err := fmt.Errorf("deliver: %w", &ExternalServiceError{Platform: Twitter, Err: cause})

	var ext *ExternalServiceError
	assert.True(t, errors.As(err, &ext))
	assert.Equal(t, Twitter, ext.Platform)
	assert.Equal(t, "rate limited", ext.Error())
	assert.ErrorIs(t, err, cause)
}

func TestInvalidRequestf(t *testing.T) {
	err := InvalidRequestf("unknown platform %q", "myspace")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "myspace")
}

func TestDeliveryFailureMessages(t *testing.T) {
	assert.Equal(t, "Platform not connected", ErrPlatformNotConnected.Error())
	assert.Equal(t, "Platform not supported", ErrPlatformNotSupported.Error())
}
