package token

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func TestIssueAndValidate(t *testing.T) {
	svc := NewService([]byte("test-secret"), "streetpass")
	raw, err := svc.Issue("uid-1", "code-9", time.Hour)
	require.NoError(t, err)

	id, err := svc.Validate(ctx, raw, true)
	require.NoError(t, err)
	assert.Equal(t, Identity{UID: "uid-1", UploadCode: "code-9"}, id)
}

func TestExpiredToken(t *testing.T) {
	svc := NewService([]byte("test-secret"), "streetpass")
	svc.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	raw, err := svc.Issue("uid-1", "code-9", time.Hour)
	require.NoError(t, err)
	svc.now = time.Now

	_, err = svc.Validate(ctx, raw, true)
	require.ErrorIs(t, err, ErrExpired)
	require.ErrorIs(t, err, ErrInvalidToken)

	id, err := svc.Validate(ctx, raw, false)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", id.UID)
}

func TestInvalidTokens(t *testing.T) {
	svc := NewService([]byte("test-secret"), "streetpass")
	other := NewService([]byte("other-secret"), "streetpass")
	foreign, err := other.Issue("uid-1", "", time.Hour)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"empty":      "",
		"garbage":    "not-a-jwt",
		"bad secret": foreign,
	} {
		t.Run(name, func(t *testing.T) {
			for _, check := range []bool{true, false} {
				_, err := svc.Validate(ctx, raw, check)
				require.ErrorIs(t, err, ErrInvalidToken)
			}
		})
	}
}

func TestWrongIssuer(t *testing.T) {
	raw, err := NewService([]byte("s"), "someone-else").Issue("uid", "", time.Hour)
	require.NoError(t, err)
	_, err = NewService([]byte("s"), "streetpass").Validate(ctx, raw, true)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueRequiresUID(t *testing.T) {
	_, err := NewService([]byte("s"), "").Issue("", "", time.Hour)
	require.Error(t, err)
}
