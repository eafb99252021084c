// Package webhook verifies inbound webhook signatures over the raw request
// body. Both schemes are HMAC-SHA256; comparison is constant time.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingSignature = errors.New("missing signature header")
	ErrBadSignature     = errors.New("signature mismatch")
	ErrStaleTimestamp   = errors.New("signature timestamp outside tolerance")
)

const metaSignaturePrefix = "sha256="

// VerifyMeta checks the X-Hub-Signature-256 header: "sha256=" followed by
// the hex HMAC-SHA256 of the raw body keyed with the app secret.
func VerifyMeta(appSecret string, body []byte, header string) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissingSignature
	}
	if !strings.HasPrefix(header, metaSignaturePrefix) {
		return ErrBadSignature
	}

	expected := computeHMAC(appSecret, body)
	provided := strings.TrimPrefix(header, metaSignaturePrefix)
	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return ErrBadSignature
	}
	return nil
}

// SignMeta produces a valid X-Hub-Signature-256 value for body. Used by
// tests and the loopback channel.
func SignMeta(appSecret string, body []byte) string {
	return metaSignaturePrefix + computeHMAC(appSecret, body)
}

// VerifyStripe checks a Stripe-Signature header: "t=<unix>,v1=<hex>" where
// the digest covers "<t>.<body>". Timestamps older than tolerance are
// rejected to stop replay.
func VerifyStripe(secret string, body []byte, header string, tolerance time.Duration, now time.Time) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissingSignature
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return ErrBadSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	if tolerance > 0 {
		age := now.Sub(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return ErrStaleTimestamp
		}
	}

	signed := timestamp + "." + string(body)
	expected := computeHMAC(secret, []byte(signed))
	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return ErrBadSignature
}

// SignStripe produces a valid Stripe-Signature value for body at ts.
func SignStripe(secret string, body []byte, ts time.Time) string {
	timestamp := strconv.FormatInt(ts.Unix(), 10)
	digest := computeHMAC(secret, []byte(timestamp+"."+string(body)))
	return "t=" + timestamp + ",v1=" + digest
}

func computeHMAC(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
