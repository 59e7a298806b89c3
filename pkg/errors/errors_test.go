package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIncludesInternal(t *testing.T) {
	err := ErrInternalServer.WithInternal(stdErrors.New("boom"))
	require.Equal(t, "Internal server error: boom", err.Error())
	require.Nil(t, ErrInternalServer.Internal, "the shared value is not mutated")

	var nilErr *AppError
	require.Equal(t, "<nil>", nilErr.Error())
	require.Nil(t, nilErr.WithInternal(err))
}

func TestIsMatchesByCode(t *testing.T) {
	notFound := NewNotFound("task")
	require.Equal(t, "task not found", notFound.Message)
	require.Equal(t, http.StatusNotFound, notFound.StatusCode)
	require.ErrorIs(t, notFound, ErrNotFound)
	require.NotErrorIs(t, notFound, ErrBadRequest)

	wrapped := fmt.Errorf("load: %w", NewBadRequest("ids must not be empty"))
	require.ErrorIs(t, wrapped, ErrBadRequest)
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))
	require.Same(t, ErrNotFound, FromError(ErrNotFound))

	wrapped := fmt.Errorf("store: %w", ErrForbidden)
	require.Same(t, ErrForbidden, FromError(wrapped))

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
	require.Equal(t, "Invalid request", ErrBadRequest.Message)
}

func TestTooManyRequests(t *testing.T) {
	require.Equal(t, "RATE_LIMITED", ErrTooManyRequests.Code)
	require.Equal(t, http.StatusTooManyRequests, ErrTooManyRequests.StatusCode)
}
