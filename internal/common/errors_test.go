package common

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_UnwrapsToKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
		msg  string
	}{
		{"validation", Validationf("no file provided"), ErrValidation, "no file provided"},
		{"forbidden", Forbiddenf("you can only access your own user data"), ErrForbidden, "you can only access your own user data"},
		{"not found", NotFoundf("user %d not found", 7), ErrNotFound, "user 7 not found"},
		{"conflict", Conflictf("username taken"), ErrConflict, "username taken"},
		{"unauthorized", Unauthorizedf("invalid credentials"), ErrUnauthorized, "invalid credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)
			assert.Equal(t, tt.msg, tt.err.Error())

			var e *Error
			if assert.True(t, errors.As(tt.err, &e)) {
				assert.Equal(t, tt.kind, e.Kind())
			}
		})
	}
}

func TestStorage_MatchesKindAndCause(t *testing.T) {
	err := Storage("store avatar", fs.ErrPermission)

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.Contains(t, err.Error(), "store avatar")
}
