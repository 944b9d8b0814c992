package dberr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNotFoundIsClassifiable(t *testing.T) {
	err := NewNotFound("alias '%s' not found", "root")
	assert.True(t, errors.Is(err, NotFound))
	assert.False(t, errors.Is(err, TypeMismatch))
	assert.Equal(t, "alias 'root' not found", err.Error())
}

func TestWrapIoExposesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapIo("write failed", cause)

	assert.True(t, errors.Is(err, Io))
	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, cause, e.Cause())
	assert.Equal(t, "write failed: disk full", err.Error())
}

func TestNewTransactionMismatchFormatsBothIDs(t *testing.T) {
	err := NewTransactionMismatch(1, 2)
	assert.True(t, errors.Is(err, TransactionMismatch))
	assert.Contains(t, err.Error(), "'1'")
	assert.Contains(t, err.Error(), "'2'")
}
