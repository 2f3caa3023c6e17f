package helper

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword 生成 bcrypt 摘要，管理口令落配置前调用
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func CheckPassword(input string, hashed string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(input))
	return err == nil
}

// MaskPixKey 打码PIX密钥，日志/回包里只留首尾
func MaskPixKey(key string) string {
	k := strings.TrimSpace(key)
	if len(k) <= 6 {
		return "***"
	}
	return k[:3] + "****" + k[len(k)-3:]
}
