package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorStringIncludesInternal(t *testing.T) {
	require.Equal(t, "delivery failed: dial tcp: timeout", Wrap(stdErrors.New("dial tcp: timeout"), "delivery failed").Error())
	require.Equal(t, "Invalid request", ErrBadRequest.Error())

	var nilErr *AppError
	require.Equal(t, "<nil>", nilErr.Error())
}

func TestWithInternalCopiesAndUnwraps(t *testing.T) {
	cause := stdErrors.New("oops")
	base := New("TEST", "test", http.StatusBadRequest)
	with := base.WithInternal(cause)

	require.NotSame(t, base, with)
	require.Nil(t, base.Internal)
	require.ErrorIs(t, with, cause)
}

func TestWithDetailsMergesWithoutMutating(t *testing.T) {
	base := New("TEST", "test", http.StatusBadRequest).WithDetails(map[string]any{"scope": "ip"})
	with := base.WithDetails(map[string]any{"retryAfter": 60})

	require.Len(t, base.Details, 1)
	require.Equal(t, map[string]any{"scope": "ip", "retryAfter": 60}, with.Details)

	var nilErr *AppError
	require.Nil(t, nilErr.WithDetails(map[string]any{"a": 1}))
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))
	require.Same(t, ErrNotFound, FromError(ErrNotFound))

	raw := stdErrors.New("raw")
	out := FromError(raw)
	require.Equal(t, ErrInternalServer.Code, out.Code)
	require.ErrorIs(t, out, raw)
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid payload")
	require.Equal(t, ErrBadRequest.Code, err.Code)
	require.Equal(t, "invalid payload", err.Message)
	require.Equal(t, http.StatusBadRequest, err.StatusCode)
}
