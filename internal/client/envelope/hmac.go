package envelope

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
)

// HMACSigner implementa OTPSigner y PaymentSigner con HMAC-SHA256 sobre la
// cadena canónica de cada firma. Es la construcción por defecto; un backend
// con otro esquema se enchufa implementando las mismas interfaces.
type HMACSigner struct{}

// SignOTP firma canal|código|contacto|timestamp con el api key como clave.
func (HMACSigner) SignOTP(apiKey, timestamp, contact, code, channel string) string {
	msg := strings.Join([]string{channel, code, contact, timestamp}, "|")
	return hmacHex(apiKey, msg)
}

// SignPayment firma los insumos del settlement en orden fijo.
func (HMACSigner) SignPayment(apiKey, accessToken string, timestamp int64, itemCode, paymentToken, paymentMethod, paymentFor string) (string, error) {
	msg := strings.Join([]string{
		accessToken,
		strconv.FormatInt(timestamp, 10),
		itemCode,
		paymentToken,
		paymentMethod,
		paymentFor,
	}, "|")
	return hmacHex(apiKey, msg), nil
}

func hmacHex(key, msg string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

func b64Std(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func b64URL(b []byte) string {
	return base64.URLEncoding.EncodeToString(b)
}
