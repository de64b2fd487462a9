package errors

import (
	"fmt"
	"io"
	"net/http"
	"testing"

	stderrors "errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesByType(t *testing.T) {
	err := NewTimeout("resample exceeded 10s")
	assert.True(t, stderrors.Is(err, ErrTimeout))
	assert.False(t, stderrors.Is(err, ErrDecode))

	wrapped := fmt.Errorf("transform: %w", err)
	assert.True(t, stderrors.Is(wrapped, ErrTimeout))
}

func TestNewDecodeKeepsCause(t *testing.T) {
	err := NewDecode(io.ErrUnexpectedEOF)
	assert.True(t, stderrors.Is(err, ErrDecode))
	assert.True(t, stderrors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatusOf(err))
	assert.Contains(t, err.Error(), "unexpected EOF")
}

func TestWrapKeepsType(t *testing.T) {
	err := Wrap(NewUnknownFormat("bogus"), "encode step")
	require.NotNil(t, err)
	assert.Equal(t, ErrorTypeUnknownFormat, err.Type)
	assert.True(t, stderrors.Is(err, ErrUnknownFormat))
	assert.Equal(t, http.StatusBadRequest, HTTPStatusOf(err))
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestFromErrorPlain(t *testing.T) {
	appErr := FromError(io.EOF)
	assert.Equal(t, ErrorTypeUnknown, appErr.Type)
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusOf(io.EOF))
	assert.Equal(t, ErrorType(""), TypeOf(nil))
}

func TestNewInvalidDetails(t *testing.T) {
	err := NewInvalid("quality", 1.5, "must be within [0, 1]")
	assert.True(t, stderrors.Is(err, ErrInvalidArgument))
	assert.Equal(t, "quality", err.Details["field"])
	assert.Equal(t, 1.5, err.Details["value"])
}

func TestRecoverError(t *testing.T) {
	assert.NoError(t, RecoverError(nil))

	err := func() (err error) {
		defer func() { err = RecoverError(recover()) }()
		panic("boom")
	}()
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrInternal))
	assert.Contains(t, err.Error(), "boom")
}
