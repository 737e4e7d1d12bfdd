// Package clienttest provee piezas compartidas para los tests del cliente:
// un codec de juguete (base64 sobre JSON) y helpers para armar backends
// httptest que hablen el mismo formato.
package clienttest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dropDatabas3/axel/internal/client/envelope"
	"github.com/dropDatabas3/axel/internal/config"
)

// XTime es el xtime fijo que emite el codec de test.
const XTime int64 = 1_700_000_000_123

// Codec envuelve el JSON en base64 dentro de {"xdata": ...}. Suficiente para
// ejercitar pipeline y services sin criptografía real.
type Codec struct {
	FailDecrypt bool
}

func (c Codec) Encrypt(apiKey, method, path, idToken string, payload any) (envelope.Sealed, error) {
	plain, err := json.Marshal(payload)
	if err != nil {
		return envelope.Sealed{}, err
	}
	body, err := json.Marshal(map[string]any{
		"xdata": base64.StdEncoding.EncodeToString(plain),
		"xtime": XTime,
	})
	if err != nil {
		return envelope.Sealed{}, err
	}
	return envelope.Sealed{Body: body, Signature: "sig-" + path, XTimeMillis: XTime}, nil
}

func (c Codec) Decrypt(apiKey string, body []byte) (map[string]any, error) {
	if c.FailDecrypt {
		return nil, fmt.Errorf("clienttest: forced auth failure")
	}
	return Open(body)
}

// Seal arma, del lado del server de test, un cuerpo que Codec.Decrypt abre.
func Seal(v any) []byte {
	plain, _ := json.Marshal(v)
	b, _ := json.Marshal(map[string]any{
		"xdata": base64.StdEncoding.EncodeToString(plain),
	})
	return b
}

// Open decodifica un cuerpo sellado por Codec.Encrypt o Seal.
func Open(body []byte) (map[string]any, error) {
	var b struct {
		XData string `json:"xdata"`
	}
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, err
	}
	plain, err := base64.StdEncoding.DecodeString(b.XData)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(plain, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Config arma una config mínima apuntando a baseURL.
func Config(baseURL string) config.Config {
	var cfg config.Config
	cfg.API.BaseURL = baseURL
	cfg.API.CIAMBaseURL = baseURL
	cfg.API.Key = "test-api-key"
	cfg.API.BasicAuth = "dGVzdDp0ZXN0"
	cfg.API.UserAgent = "axel-test"
	cfg.API.ClientVersion = "8.7.0"
	cfg.Device.Name = "samsung"
	cfg.Device.Model = "SM-N935F"
	cfg.Device.SubscriberType = "PREPAID"
	cfg.HTTP.Timeout = 5 * time.Second
	return cfg
}
