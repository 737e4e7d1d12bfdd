package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

const (
	nonceSizeGCM = 12 // AES-GCM nonce de 96 bits
	keyLen       = 32 // AES-256
	sep          = "|" // nonce|ciphertext (ambos en base64)
)

// GCMCodec es el codec de referencia: HKDF-SHA256 del api key a una clave
// AES-256-GCM, cuerpo {"xdata": base64(nonce)|base64(ct), "xtime": millis}.
// NO es el esquema del backend de producción; sirve para tests y para
// desarrollar contra backends propios que hablen el mismo formato.
type GCMCodec struct {
	// Now permite fijar el reloj en tests. Default: time.Now.
	Now func() time.Time
}

type gcmBody struct {
	XData string `json:"xdata"`
	XTime int64  `json:"xtime"`
}

// Encrypt cifra el payload y firma method|path|xdata|xtime con el id token
// mezclado en la clave de firma.
func (c GCMCodec) Encrypt(apiKey, method, path, idToken string, payload any) (Sealed, error) {
	plain, err := json.Marshal(payload)
	if err != nil {
		return Sealed{}, fmt.Errorf("envelope: marshal payload: %w", err)
	}

	aead, err := c.aead(apiKey)
	if err != nil {
		return Sealed{}, err
	}

	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Sealed{}, fmt.Errorf("envelope: nonce random: %w", err)
	}
	ct := aead.Seal(nil, nonce, plain, nil)

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	xtime := now().UnixMilli()
	xdata := b64Std(nonce) + sep + b64Std(ct)

	body, err := json.Marshal(gcmBody{XData: xdata, XTime: xtime})
	if err != nil {
		return Sealed{}, fmt.Errorf("envelope: marshal body: %w", err)
	}

	sigMsg := strings.Join([]string{method, path, xdata, strconv.FormatInt(xtime, 10)}, "|")
	mac := hmac.New(sha256.New, []byte(apiKey+idToken))
	mac.Write([]byte(sigMsg))

	return Sealed{
		Body:        body,
		Signature:   hex.EncodeToString(mac.Sum(nil)),
		XTimeMillis: xtime,
	}, nil
}

// Decrypt abre un cuerpo {"xdata": ...} y devuelve el JSON plano.
func (c GCMCodec) Decrypt(apiKey string, body []byte) (map[string]any, error) {
	var b gcmBody
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("envelope: cuerpo no es un envelope: %w", err)
	}
	if b.XData == "" {
		return nil, fmt.Errorf("envelope: falta xdata")
	}

	parts := strings.Split(b.XData, sep)
	if len(parts) != 2 {
		return nil, fmt.Errorf("envelope: formato inválido, esperado base64(nonce)|base64(ciphertext)")
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("envelope: decode nonce: %w", err)
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("envelope: decode ciphertext: %w", err)
	}
	if len(nonce) != nonceSizeGCM {
		return nil, fmt.Errorf("envelope: nonce inválido: %d bytes", len(nonce))
	}

	aead, err := c.aead(apiKey)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("envelope: gcm auth/decrypt: %w", err)
	}

	var out map[string]any
	if err := json.Unmarshal(plain, &out); err != nil {
		return nil, fmt.Errorf("envelope: JSON descifrado inválido: %w", err)
	}
	return out, nil
}

func (c GCMCodec) aead(apiKey string) (cipher.AEAD, error) {
	key := make([]byte, keyLen)
	kdf := hkdf.New(sha256.New, []byte(apiKey), nil, []byte("axel-xdata-v1"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("envelope: hkdf: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("envelope: aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("envelope: cipher.NewGCM: %w", err)
	}
	return aead, nil
}
