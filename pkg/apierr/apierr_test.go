package apierr

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "validation",
			err:  &ValidationError{Field: "id", Reason: "required"},
			want: "invalid id: required",
		},
		{
			name: "busy",
			err:  &BusyError{Kind: "creating"},
			want: "operation already in flight: creating",
		},
		{
			name: "timeout",
			err:  &TimeoutError{URL: "http://api/tunnels/v1/", Timeout: 10 * time.Second},
			want: "request timeout after 10s: http://api/tunnels/v1/",
		},
		{
			name: "http",
			err:  &HTTPError{Status: 404, Message: "tunnel not found"},
			want: "http 404: tunnel not found",
		},
		{
			name: "parse without cause",
			err:  &ParseError{Detail: "unrecognized list envelope"},
			want: "parse error: unrecognized list envelope",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestUnwrapChains(t *testing.T) {
	cause := errors.New("connection refused")

	var netErr *NetworkError
	wrapped := fmt.Errorf("listing tunnels: %w", &NetworkError{URL: "http://api", Err: cause})
	assert.True(t, errors.As(wrapped, &netErr))
	assert.True(t, errors.Is(wrapped, cause))

	var provErr *ProviderError
	err := fmt.Errorf("sign in: %w", &ProviderError{Op: "signInWithPassword", Err: cause})
	assert.True(t, errors.As(err, &provErr))
	assert.Equal(t, "signInWithPassword", provErr.Op)
	assert.True(t, errors.Is(err, cause))

	var parseErr *ParseError
	err = &ParseError{Detail: "schema", Err: cause}
	assert.True(t, errors.As(err, &parseErr))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection refused")
}
