package normalize

import "strings"

// Digits strips every non-digit from a CPF/CNPJ.
func Digits(doc string) string {
	var b strings.Builder
	for _, r := range doc {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidDocument checks the verifier digits of a CPF (11 digits) or a
// CNPJ (14 digits). Punctuation is ignored.
func ValidDocument(doc string) bool {
	d := Digits(doc)
	switch len(d) {
	case 11:
		return validCPF(d)
	case 14:
		return validCNPJ(d)
	}
	return false
}

func allSame(d string) bool {
	for i := 1; i < len(d); i++ {
		if d[i] != d[0] {
			return false
		}
	}
	return true
}

func validCPF(d string) bool {
	if allSame(d) {
		return false
	}
	for n := 9; n <= 10; n++ {
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(d[i]-'0') * (n + 1 - i)
		}
		r := (sum * 10) % 11
		if r == 10 {
			r = 0
		}
		if r != int(d[n]-'0') {
			return false
		}
	}
	return true
}

var (
	cnpjWeights1 = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

func validCNPJ(d string) bool {
	if allSame(d) {
		return false
	}
	for _, w := range [][]int{cnpjWeights1, cnpjWeights2} {
		n := len(w)
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(d[i]-'0') * w[i]
		}
		digit := 0
		if r := sum % 11; r >= 2 {
			digit = 11 - r
		}
		if digit != int(d[n]-'0') {
			return false
		}
	}
	return true
}
