package helper

import (
	"testing"
)

func TestCPFGenerateAndCheck(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := GenerateCPF()
		if err != nil {
			t.Fatalf("generate error: %v", err)
		}
		if len(code) != 11 {
			t.Fatalf("len != 11: %s", code)
		}
		if !CPFCheck(code) {
			t.Fatalf("cpf check fail: %s", code)
		}
		// flip last digit to force fail
		b := []byte(code)
		b[10] = byte('0' + (int(b[10]-'0')+1)%10)
		if CPFCheck(string(b)) {
			t.Fatalf("cpf should fail after mutation: %s -> %s", code, string(b))
		}
	}
}

func TestCPFKnownValues(t *testing.T) {
	valid := []string{"52998224725", "11144477735"}
	for _, v := range valid {
		if !CPFCheck(v) {
			t.Errorf("expected valid: %s", v)
		}
	}
	invalid := []string{"", "123", "52998224724", "11111111111", "5299822472a"}
	for _, v := range invalid {
		if CPFCheck(v) {
			t.Errorf("expected invalid: %s", v)
		}
	}
}

func TestCNPJCheck(t *testing.T) {
	if !CNPJCheck("11222333000181") {
		t.Error("expected valid cnpj")
	}
	if CNPJCheck("11222333000180") {
		t.Error("expected invalid cnpj")
	}
	if CNPJCheck("1122233300018") {
		t.Error("short cnpj should fail")
	}
}

func TestNormalizeDocument(t *testing.T) {
	if got := NormalizeDocument("529.982.247-25"); got != "52998224725" {
		t.Errorf("NormalizeDocument = %s", got)
	}
}
