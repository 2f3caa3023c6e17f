package helper

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// CPFCheck 校验11位CPF（仅数字，不带掩码）
func CPFCheck(code string) bool {
	if len(code) != 11 {
		return false
	}
	allSame := true
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c < '0' || c > '9' {
			return false
		}
		if c != code[0] {
			allSame = false
		}
	}
	// 11111111111 这类全同号是合法校验和但无效证件
	if allSame {
		return false
	}
	if cpfDigit(code[:9], 10) != code[9] {
		return false
	}
	return cpfDigit(code[:10], 11) == code[10]
}

// cpfDigit 计算一位CPF校验码，startWeight 为最高位权重
func cpfDigit(body string, startWeight int) byte {
	sum := 0
	w := startWeight
	for i := 0; i < len(body); i++ {
		sum += int(body[i]-'0') * w
		w--
	}
	d := (sum * 10) % 11
	if d == 10 {
		d = 0
	}
	return byte('0' + d)
}

// CNPJCheck 校验14位CNPJ（仅数字）
func CNPJCheck(code string) bool {
	if len(code) != 14 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	if cnpjDigit(code[:12]) != code[12] {
		return false
	}
	return cnpjDigit(code[:13]) == code[13]
}

var cnpjWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}

func cnpjDigit(body string) byte {
	weights := cnpjWeights[len(cnpjWeights)-len(body):]
	sum := 0
	for i := 0; i < len(body); i++ {
		sum += int(body[i]-'0') * weights[i]
	}
	d := sum % 11
	if d < 2 {
		return '0'
	}
	return byte('0' + 11 - d)
}

// NormalizeDocument 去掉CPF/CNPJ里的掩码符号
func NormalizeDocument(doc string) string {
	var b strings.Builder
	b.Grow(len(doc))
	for i := 0; i < len(doc); i++ {
		c := doc[i]
		if c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// GenerateCPF 随机生成一个带合法校验位的CPF，测试环境造数用
// Leading zeros are allowed.
func GenerateCPF() (string, error) {
	var b strings.Builder
	b.Grow(11)
	for i := 0; i < 9; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	body := b.String()
	d1 := cpfDigit(body, 10)
	d2 := cpfDigit(body+string(d1), 11)
	return body + string(d1) + string(d2), nil
}
