package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func hmacHex(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event_id":"evt-1","event_type":"payment.paid","external_id":"DP-100"}`)
	secret := "whsec_test_123"

	if !VerifyWebhookSignature(body, hmacHex(body, secret), secret) {
		t.Error("valid signature rejected")
	}
	if VerifyWebhookSignature(body, hmacHex(body, "outro_secret"), secret) {
		t.Error("signature with wrong secret accepted")
	}
	if VerifyWebhookSignature([]byte(`{"event_id":"evt-2"}`), hmacHex(body, secret), secret) {
		t.Error("signature of a different body accepted")
	}
	if VerifyWebhookSignature(body, "", secret) {
		t.Error("empty signature accepted")
	}
	if VerifyWebhookSignature(body, "deadbeef", secret) {
		t.Error("garbage signature accepted")
	}
}
