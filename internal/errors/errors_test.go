package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := WithMetadata(KindPartyFull, "invite rejected", map[string]string{"count": "2", "limit": "2"})

	assert.True(t, stderrors.Is(err, ErrPartyFull))
	assert.False(t, stderrors.Is(err, ErrNotOwner))

	wrapped := fmt.Errorf("invite: %w", err)
	assert.True(t, stderrors.Is(wrapped, ErrPartyFull))
}

func TestUnavailableKeepsCause(t *testing.T) {
	err := Unavailable("member_count", context.DeadlineExceeded)

	assert.True(t, stderrors.Is(err, ErrStorageUnavailable))
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "member_count")
}

func TestAsClassifiesForeignErrors(t *testing.T) {
	assert.Nil(t, As(nil))
	assert.Equal(t, Kind(""), KindOf(nil))

	e := As(stderrors.New("driver exploded"))
	require.NotNil(t, e)
	assert.Equal(t, KindStorageUnavailable, e.Kind)

	assert.Equal(t, KindNotOwner, KindOf(fmt.Errorf("kick: %w", ErrNotOwner)))
}

func TestUserMessage(t *testing.T) {
	full := WithMetadata(KindPartyFull, "full", map[string]string{"count": "4", "limit": "4"})
	assert.Equal(t, "Your party is full (4/4).", full.UserMessage())
	assert.Equal(t, "Your party is full.", ErrPartyFull.UserMessage())

	long := WithMetadata(KindNameTooLong, "too long", map[string]string{"max": "32"})
	assert.Equal(t, "Party name must be at most 32 characters.", long.UserMessage())

	assert.Equal(t, KindStorageUnavailable.UserMessage(), Kind("bogus").UserMessage())
}

func TestEveryKindHasMessageAndStatus(t *testing.T) {
	kinds := []Kind{
		KindAlreadyInParty, KindNotInParty, KindNotOwner, KindAlreadyMember,
		KindNotAMember, KindCannotKickSelf, KindPartyFull, KindTargetInAnotherParty,
		KindNameTooLong, KindTargetNotFound, KindInvalidRequest,
		KindPermissionDenied, KindStorageUnavailable,
	}
	seen := map[string]Kind{}
	for _, k := range kinds {
		msg, ok := userMessages[k]
		require.True(t, ok, "missing message for %s", k)
		if prev, dup := seen[msg]; dup {
			t.Fatalf("%s and %s share a message", prev, k)
		}
		seen[msg] = k
		assert.NotZero(t, k.HTTPStatus())
	}

	assert.Equal(t, http.StatusConflict, KindPartyFull.HTTPStatus())
	assert.Equal(t, http.StatusForbidden, KindNotOwner.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, KindCannotKickSelf.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, KindTargetNotFound.HTTPStatus())
	assert.Equal(t, http.StatusServiceUnavailable, KindStorageUnavailable.HTTPStatus())
}
