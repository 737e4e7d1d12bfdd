package envelope

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGCMCodec_RoundTrip(t *testing.T) {
	c := GCMCodec{Now: func() time.Time { return time.UnixMilli(1_700_000_000_123) }}

	sealed, err := c.Encrypt("k-123", "POST", "api/v8/profile", "idtok", map[string]any{
		"lang":          "en",
		"is_enterprise": false,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1_700_000_000_123), sealed.XTimeMillis)
	require.NotEmpty(t, sealed.Signature)

	// El cuerpo sellado no contiene el payload en claro.
	require.NotContains(t, string(sealed.Body), "is_enterprise")

	out, err := c.Decrypt("k-123", sealed.Body)
	require.NoError(t, err)
	require.Equal(t, "en", out["lang"])
	require.Equal(t, false, out["is_enterprise"])
}

func TestGCMCodec_WrongKeyFailsAuth(t *testing.T) {
	c := GCMCodec{}
	sealed, err := c.Encrypt("key-a", "POST", "p", "tok", map[string]any{"x": 1})
	require.NoError(t, err)

	_, err = c.Decrypt("key-b", sealed.Body)
	require.Error(t, err)
}

func TestGCMCodec_NotAnEnvelope(t *testing.T) {
	c := GCMCodec{}
	_, err := c.Decrypt("k", []byte(`{"hello":"world"}`))
	require.Error(t, err)
}

func TestHMACSigner_Deterministic(t *testing.T) {
	var s HMACSigner
	a := s.SignOTP("k", "2024-06-01T10:00:00.000+0700", "628111", "123456", "SMS")
	b := s.SignOTP("k", "2024-06-01T10:00:00.000+0700", "628111", "123456", "SMS")
	require.Equal(t, a, b)
	require.NotEqual(t, a, s.SignOTP("k", "2024-06-01T10:00:00.000+0700", "628111", "654321", "SMS"))

	p1, err := s.SignPayment("k", "acc", 1700000000, "item", "paytok", "BALANCE", "BUY_PACKAGE")
	require.NoError(t, err)
	p2, err := s.SignPayment("k", "acc", 1700000000, "item", "paytok", "BALANCE", "BUY_PACKAGE")
	require.NoError(t, err)
	require.Equal(t, p1, p2)
}

func TestEncryptedField_PresentButEmptyPayload(t *testing.T) {
	f := EncryptedField(true)
	require.NotEmpty(t, f)
	b, err := base64.URLEncoding.DecodeString(f)
	require.NoError(t, err)
	require.JSONEq(t, "{}", string(b))
}
