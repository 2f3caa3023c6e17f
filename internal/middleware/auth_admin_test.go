package middleware

import (
	"testing"

	chelper "github.com/ThalesMilho/projeto-web/common/helper"
)

func TestAdminTokenValidPlaintext(t *testing.T) {
	if !adminTokenValid("s3cret-admin", "s3cret-admin") {
		t.Error("matching plaintext token should pass")
	}
	if adminTokenValid("s3cret-admin", "other-token") {
		t.Error("mismatched plaintext token should fail")
	}
	if adminTokenValid("anything", "") {
		t.Error("empty configured token must reject everything")
	}
}

func TestAdminTokenValidBcrypt(t *testing.T) {
	hashed, err := chelper.HashPassword("painel-2026")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !adminTokenValid("painel-2026", hashed) {
		t.Error("correct password against bcrypt hash should pass")
	}
	if adminTokenValid("painel-2025", hashed) {
		t.Error("wrong password against bcrypt hash should fail")
	}
}
