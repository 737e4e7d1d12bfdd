package apierr

import (
	"errors"
	"fmt"
)

// Kind clasifica un error según su origen, no según el endpoint que lo produjo.
// La distinción importa para la política de propagación: nada local ni de
// decodificación se reintenta, y KindSessionExpired debe disparar una
// re-autenticación por OTP en lugar de tratarse como fallo genérico.
type Kind int

const (
	// KindInvalidInput: validación local, no se hizo ninguna llamada de red.
	KindInvalidInput Kind = iota + 1
	// KindTransport: error de red, timeout o status no-2xx.
	KindTransport
	// KindMalformedResponse: el cuerpo no es el envelope esperado
	// (típicamente una página de error de un intermediario).
	KindMalformedResponse
	// KindDecode: envelope presente pero falla el descifrado/autenticación.
	KindDecode
	// KindProtocol: envelope bien formado pero faltan campos obligatorios.
	KindProtocol
	// KindApplication: error de negocio reportado por el backend.
	KindApplication
	// KindSessionExpired: el refresh fue rechazado explícitamente.
	KindSessionExpired
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindTransport:
		return "transport"
	case KindMalformedResponse:
		return "malformed_response"
	case KindDecode:
		return "decode"
	case KindProtocol:
		return "protocol"
	case KindApplication:
		return "application"
	case KindSessionExpired:
		return "session_expired"
	default:
		return "unknown"
	}
}

// APIError define la estructura estándar para errores del cliente.
type APIError struct {
	Kind    Kind
	Code    string
	Message string
	Detail  string
	Status  int    // HTTP status, si aplica
	Raw     []byte // bytes crudos de la respuesta, preservados para diagnóstico
	Err     error  // causa original, útil para logs
}

// Error implementa la interfaz error.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap permite acceder al error original.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is permite comparar contra los sentinels con errors.Is.
// Un sentinel sin Code matchea por Kind; con Code matchea por Code.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	if t.Code != "" {
		return e.Code == t.Code
	}
	return e.Kind == t.Kind
}

// New crea un nuevo APIError.
func New(kind Kind, code, message string) *APIError {
	return &APIError{Kind: kind, Code: code, Message: message}
}

// Wrap crea un APIError envolviendo un error existente.
func Wrap(err error, kind Kind, code, message string) *APIError {
	return &APIError{Kind: kind, Code: code, Message: message, Err: err}
}

// FromError intenta convertir un error genérico en un APIError.
// Si no lo es, lo envuelve como error de protocolo conservando la causa.
func FromError(err error) *APIError {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae
	}
	return ErrProtocol.WithCause(err)
}

// WithDetail agrega detalle adicional. Devuelve una COPIA para no mutar
// las variables globales base.
func (e *APIError) WithDetail(detail string) *APIError {
	n := *e
	n.Detail = detail
	return &n
}

// WithCause agrega el error original (causa). Devuelve una COPIA.
func (e *APIError) WithCause(err error) *APIError {
	n := *e
	n.Err = err
	return &n
}

// WithStatus agrega el status HTTP. Devuelve una COPIA.
func (e *APIError) WithStatus(status int) *APIError {
	n := *e
	n.Status = status
	return &n
}

// WithRaw conserva los bytes crudos de la respuesta. Devuelve una COPIA.
// Un fallo de descifrado nunca descarta el cuerpo original.
func (e *APIError) WithRaw(raw []byte) *APIError {
	n := *e
	n.Raw = append([]byte(nil), raw...)
	return &n
}

// IsKind reporta si err es un APIError del Kind dado.
func IsKind(err error, k Kind) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Kind == k
	}
	return false
}

// =================================================================================
// LISTA DE ERRORES PREDEFINIDOS
// =================================================================================

var (
	ErrInvalidInput = &APIError{
		Kind:    KindInvalidInput,
		Message: "input rejected by local validation",
	}

	ErrInvalidContact = &APIError{
		Kind:    KindInvalidInput,
		Code:    "INVALID_CONTACT",
		Message: "contact must be digits, start with 628 and have at most 14 characters",
	}

	ErrInvalidOTPCode = &APIError{
		Kind:    KindInvalidInput,
		Code:    "INVALID_OTP_CODE",
		Message: "OTP code must be exactly 6 characters",
	}

	ErrTransport = &APIError{
		Kind:    KindTransport,
		Code:    "TRANSPORT",
		Message: "network call failed",
	}

	ErrMalformedResponse = &APIError{
		Kind:    KindMalformedResponse,
		Code:    "MALFORMED_RESPONSE",
		Message: "response body is not the expected envelope",
	}

	ErrDecode = &APIError{
		Kind:    KindDecode,
		Code:    "DECODE",
		Message: "envelope could not be decrypted or authenticated",
	}

	ErrProtocol = &APIError{
		Kind:    KindProtocol,
		Code:    "PROTOCOL",
		Message: "response is missing mandatory fields",
	}

	ErrApplication = &APIError{
		Kind:    KindApplication,
		Message: "backend reported a business error",
	}

	ErrAuthRejected = &APIError{
		Kind:    KindApplication,
		Code:    "AUTH_REJECTED",
		Message: "authentication rejected by the identity provider",
	}

	ErrSessionExpired = &APIError{
		Kind:    KindSessionExpired,
		Code:    "SESSION_EXPIRED",
		Message: "session not active; re-authenticate via OTP",
	}

	ErrFamilyNotFound = &APIError{
		Kind:    KindApplication,
		Code:    "FAMILY_NOT_FOUND",
		Message: "no enterprise/migration combination yields a catalog entry",
	}

	ErrVariantNotFound = &APIError{
		Kind:    KindApplication,
		Code:    "VARIANT_NOT_FOUND",
		Message: "no variant matches the given name",
	}

	ErrOptionNotFound = &APIError{
		Kind:    KindApplication,
		Code:    "OPTION_NOT_FOUND",
		Message: "no option matches the given order",
	}

	ErrPaymentInitFailed = &APIError{
		Kind:    KindApplication,
		Code:    "PAYMENT_INIT_FAILED",
		Message: "payment method initiation was not successful",
	}
)
