package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorUnwrap(t *testing.T) {
	err := NewAppError("UPSTREAM_ERROR", "completion failed", ErrUpstream)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, "UPSTREAM_ERROR: completion failed: upstream request failed", err.Error())
}

func TestStatusHint(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("call: %w", ErrUpstreamTimeout), http.StatusGatewayTimeout},
		{fmt.Errorf("call: %w", ErrUpstream), http.StatusBadGateway},
		{fmt.Errorf("columns: %w", ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("blob: %w", ErrNotFound), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, StatusHint(c.err))
	}
}

func TestStatusHintTimeoutBeatsUpstream(t *testing.T) {
	// a timeout wraps both sentinels at the client; 504 must win
	err := fmt.Errorf("call: %w: %w", ErrUpstream, ErrUpstreamTimeout)
	assert.Equal(t, http.StatusGatewayTimeout, StatusHint(err))
}
