package sl

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErr(t *testing.T) {
	err := errors.New("boom")
	attr := Err(err)

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "boom", attr.Value.String())
}

func TestUserID(t *testing.T) {
	attr := UserID(123456789)

	assert.Equal(t, "user_id", attr.Key)
	assert.Equal(t, slog.KindInt64, attr.Value.Kind())
	assert.Equal(t, int64(123456789), attr.Value.Int64())
}
