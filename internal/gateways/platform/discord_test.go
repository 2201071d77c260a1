package platform

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/disgoorg/disgo/rest"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/stretchr/testify/assert"
)

func restError(status int) error {
	return fmt.Errorf("request failed: %w", &rest.Error{
		Message:  http.StatusText(status),
		Response: &http.Response{StatusCode: status, Status: http.StatusText(status)},
	})
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError("op", nil))

	tests := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, rooms.ErrPlatformForbidden},
		{http.StatusNotFound, rooms.ErrChannelGone},
		{http.StatusTooManyRequests, rooms.ErrNotApplied},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := mapError("delete channel", restError(tt.status))
			assert.ErrorIs(t, err, tt.want)
			var restErr *rest.Error
			assert.ErrorAs(t, err, &restErr)
			assert.Contains(t, err.Error(), "delete channel")
		})
	}

	err := mapError("op", restError(http.StatusInternalServerError))
	assert.False(t, rooms.IsDomainError(err))
	assert.NotErrorIs(t, err, rooms.ErrChannelGone)

	plain := errors.New("dial tcp: timeout")
	assert.ErrorIs(t, mapError("op", plain), plain)
}
