package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordID(t *testing.T) {
	t.Run("Should render string and numeric ids", func(t *testing.T) {
		assert.Equal(t, "abc", Record{"id": "abc"}.ID())
		assert.Equal(t, "42", Record{"id": float64(42)}.ID())
		assert.Equal(t, "7", Record{"id": int64(7)}.ID())
	})

	t.Run("Should return empty when missing", func(t *testing.T) {
		assert.Equal(t, "", Record{}.ID())
		assert.Equal(t, "", Record{"id": nil}.ID())
	})
}

func TestRemoteWriteError(t *testing.T) {
	cause := errors.New("connection reset")
	err := &RemoteWriteError{Collection: "debts", Op: "create", StatusCode: 409, Message: "duplicate key", Err: cause}

	assert.Equal(t, "create debts: status 409: duplicate key: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	var rwe *RemoteWriteError
	assert.True(t, errors.As(error(err), &rwe))
	assert.Equal(t, 409, rwe.StatusCode)
}
