// Package envelope define el contrato del wrapper cifrado+firmado que rodea
// cada cuerpo de request/response intercambiado con el backend. El esquema
// criptográfico real lo define el servicio remoto y se enchufa desde afuera;
// acá solo vive el contrato y una implementación de referencia para
// desarrollo y tests.
package envelope

import "encoding/json"

// Sealed es el resultado de cifrar un payload saliente: cuerpo opaco, firma y
// el timestamp relativo al servidor en milisegundos.
type Sealed struct {
	Body        json.RawMessage
	Signature   string
	XTimeMillis int64
}

// Codec cifra payloads salientes y descifra cuerpos de respuesta.
type Codec interface {
	Encrypt(apiKey, method, path, idToken string, payload any) (Sealed, error)
	Decrypt(apiKey string, body []byte) (map[string]any, error)
}

// PaymentSigner produce la firma específica de settlement, distinta de la
// firma genérica del envelope.
type PaymentSigner interface {
	SignPayment(apiKey, accessToken string, timestamp int64, itemCode, paymentToken, paymentMethod, paymentFor string) (string, error)
}

// OTPSigner produce la firma del submit de OTP sobre la cadena canónica
// (canal, código, contacto, timestamp de firma).
type OTPSigner interface {
	SignOTP(apiKey, timestamp, contact, code, channel string) string
}

// EncryptedField construye el campo cifrado placeholder que el cuerpo de
// settlement exige presente aunque vacío (payment token / authentication id).
func EncryptedField(urlsafeB64 bool) string {
	const empty = "{}"
	if urlsafeB64 {
		return b64URL([]byte(empty))
	}
	return b64Std([]byte(empty))
}
