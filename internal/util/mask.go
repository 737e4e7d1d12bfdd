package util

import "strings"

// MaskMSISDN enmascara un número de abonado para logs: conserva el prefijo de
// país/operador y los últimos dos dígitos.
func MaskMSISDN(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) < 8 {
		return "***"
	}
	return s[:5] + strings.Repeat("*", len(s)-7) + s[len(s)-2:]
}

// MaskToken enmascara un token opaco: primeros y últimos 4 caracteres.
func MaskToken(s string) string {
	if len(s) <= 10 {
		return "***"
	}
	return s[:4] + "…" + s[len(s)-4:]
}
