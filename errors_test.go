package gotauth_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	ga "github.com/gotmoney/gotauth"
)

func TestErrorKindStatus(t *testing.T) {
	cases := []struct {
		kind   ga.ErrorKind
		status int
		name   string
	}{
		{ga.KindNotFound, http.StatusNotFound, "not_found"},
		{ga.KindUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{ga.KindConflict, http.StatusBadRequest, "conflict"},
		{ga.KindHashing, http.StatusInternalServerError, "hashing_failure"},
		{ga.KindInfrastructure, http.StatusInternalServerError, "infrastructure_failure"},
	}
	for _, c := range cases {
		assert.Equal(t, c.status, c.kind.Status(), c.name)
		assert.Equal(t, c.name, c.kind.String())
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", ga.NewAuthError(ga.KindConflict, ga.MsgEmailTaken))
	assert.Equal(t, ga.KindConflict, ga.KindOf(wrapped))
	assert.Equal(t, http.StatusBadRequest, ga.StatusOf(wrapped))

	assert.Equal(t, ga.KindInfrastructure, ga.KindOf(errors.New("boom")))
	assert.Equal(t, http.StatusOK, ga.StatusOf(nil))
	assert.True(t, ga.IsNotFound(ga.NewAuthError(ga.KindNotFound, ga.MsgNotFound)))
	assert.False(t, ga.IsNotFound(errors.New("boom")))
}

func TestAuthErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &ga.AuthError{Kind: ga.KindInfrastructure, Message: "failed to load user", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load user: connection refused", err.Error())
}
