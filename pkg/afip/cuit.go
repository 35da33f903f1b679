package afip

import (
	"fmt"
	"unicode"
)

// pesos del dígito verificador de la CUIT/CUIL (módulo 11), aplicados a los
// 10 primeros dígitos de izquierda a derecha.
var cuitWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// ValidateCUIT valida una CUIT con o sin guiones ("20-12345678-6" o "20123456786").
func ValidateCUIT(cuit string) error {
	digits := extractDigits(cuit)
	if len(digits) != 11 {
		return fmt.Errorf("afip: la CUIT debe tener 11 dígitos, se encontraron %d", len(digits))
	}
	expected, err := ComputeCUITVerificationDigit(string(digits[:10]))
	if err != nil {
		return err
	}
	if digits[10] != expected {
		return fmt.Errorf("afip: dígito verificador de la CUIT inválido: esperado %c, recibido %c", expected, digits[10])
	}
	return nil
}

// ComputeCUITVerificationDigit calcula el dígito verificador para los 10 primeros dígitos.
func ComputeCUITVerificationDigit(cuit string) (byte, error) {
	digits := extractDigits(cuit)
	if len(digits) < 10 {
		return 0, fmt.Errorf("afip: se requieren 10 dígitos para calcular el verificador, se encontraron %d", len(digits))
	}
	var sum int
	for i, d := range digits[:10] {
		sum += int(d-'0') * cuitWeights[i]
	}
	switch v := 11 - sum%11; v {
	case 11:
		return '0', nil
	case 10:
		// AFIP no emite CUIT con resto 1; se informa como 9 (caso CUIL 23/24).
		return '9', nil
	default:
		return byte('0' + v), nil
	}
}

// NormalizeCUIT devuelve solo los dígitos de la CUIT.
func NormalizeCUIT(cuit string) string {
	return string(extractDigits(cuit))
}

func extractDigits(s string) []byte {
	var out []byte
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, byte(r))
		}
	}
	return out
}
