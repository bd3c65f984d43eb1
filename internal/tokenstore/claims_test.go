package tokenstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessTokenExpiry(t *testing.T) {
	token := signTestToken(t, "someone", 30*time.Minute)

	exp := AccessTokenExpiry(token)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp, 5*time.Second)

	assert.True(t, AccessTokenExpiry("").IsZero())
	assert.True(t, AccessTokenExpiry("opaque-token").IsZero())
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("secret-token")
	assert.Len(t, fp, 12)
	assert.Equal(t, fp, Fingerprint("secret-token"))
	assert.NotEqual(t, fp, Fingerprint("other-token"))
	assert.NotContains(t, fp, "secret")
	assert.Empty(t, Fingerprint(""))
}
