package webhook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyMeta(t *testing.T) {
	secret := "app-secret"
	body := []byte(`{"object":"whatsapp_business_account"}`)

	header := SignMeta(secret, body)
	assert.NoError(t, VerifyMeta(secret, body, header))
}

func TestVerifyMetaTamperedBody(t *testing.T) {
	secret := "app-secret"
	body := []byte(`{"amount":10}`)
	header := SignMeta(secret, body)

	tampered := []byte(`{"amount":99}`)
	assert.ErrorIs(t, VerifyMeta(secret, tampered, header), ErrBadSignature)
}

func TestVerifyMetaMissingHeader(t *testing.T) {
	assert.ErrorIs(t, VerifyMeta("s", []byte("x"), ""), ErrMissingSignature)
	assert.ErrorIs(t, VerifyMeta("s", []byte("x"), "   "), ErrMissingSignature)
}

func TestVerifyMetaWrongPrefix(t *testing.T) {
	assert.ErrorIs(t, VerifyMeta("s", []byte("x"), "sha1=abc"), ErrBadSignature)
}

func TestVerifyMetaWrongSecret(t *testing.T) {
	body := []byte("payload")
	header := SignMeta("secret-one", body)
	assert.ErrorIs(t, VerifyMeta("secret-two", body, header), ErrBadSignature)
}

func TestVerifyStripe(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"type":"checkout.session.completed"}`)
	now := time.Now()

	header := SignStripe(secret, body, now)
	require.NoError(t, VerifyStripe(secret, body, header, 5*time.Minute, now))
}

func TestVerifyStripeTampered(t *testing.T) {
	secret := "whsec_test"
	now := time.Now()
	header := SignStripe(secret, []byte(`{"id":"evt_1"}`), now)

	err := VerifyStripe(secret, []byte(`{"id":"evt_2"}`), header, 5*time.Minute, now)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyStripeStaleTimestamp(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{}`)
	signedAt := time.Now().Add(-time.Hour)

	header := SignStripe(secret, body, signedAt)
	err := VerifyStripe(secret, body, header, 5*time.Minute, time.Now())
	assert.ErrorIs(t, err, ErrStaleTimestamp)
}

func TestVerifyStripeMalformedHeader(t *testing.T) {
	err := VerifyStripe("s", []byte("x"), "v1=deadbeef", 0, time.Now())
	assert.ErrorIs(t, err, ErrBadSignature)

	err = VerifyStripe("s", []byte("x"), "t=notanumber,v1=deadbeef", 0, time.Now())
	assert.ErrorIs(t, err, ErrBadSignature)
}
