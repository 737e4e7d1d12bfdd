package auth

import "strings"

const (
	contactPrefix = "628"
	contactMaxLen = 14
	otpCodeLen    = 6
)

// ValidContact reporta si contact es un MSISDN doméstico válido: solo
// dígitos, prefijo 628 y a lo sumo 14 caracteres.
func ValidContact(contact string) bool {
	if !strings.HasPrefix(contact, contactPrefix) || len(contact) > contactMaxLen {
		return false
	}
	for i := 0; i < len(contact); i++ {
		if contact[i] < '0' || contact[i] > '9' {
			return false
		}
	}
	return true
}

// ValidOTPCode reporta si code tiene exactamente seis caracteres.
func ValidOTPCode(code string) bool {
	return len(code) == otpCodeLen
}
