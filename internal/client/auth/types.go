package auth

import (
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/axel/internal/client/apierr"
)

// TokenSet es el juego de tokens de la sesión activa. Se crea en el redeem de
// OTP y se reemplaza entero en cada refresh; nunca se actualiza parcialmente.
type TokenSet struct {
	AccessToken  string
	IDToken      string
	RefreshToken string

	// SubscriberID es el claim sub del id token (best effort, puede ser "").
	SubscriberID string
	// IDTokenExpiresAt es el claim exp del id token; zero si no pudo leerse.
	IDTokenExpiresAt time.Time
}

// ExpiresWithin reporta si el id token expira dentro de d (o si su expiración
// no pudo determinarse, en cuyo caso conviene refrescar).
func (t TokenSet) ExpiresWithin(d time.Duration) bool {
	if t.IDTokenExpiresAt.IsZero() {
		return true
	}
	return time.Until(t.IDTokenExpiresAt) < d
}

// newTokenSet arma un TokenSet desde el body de un grant. Los claims del id
// token se inspeccionan sin verificar firma: la verificación es del emisor,
// acá solo interesan exp y sub para decidir cuándo refrescar.
func newTokenSet(body map[string]any) (TokenSet, error) {
	ts := TokenSet{}
	ts.AccessToken, _ = body["access_token"].(string)
	ts.IDToken, _ = body["id_token"].(string)
	ts.RefreshToken, _ = body["refresh_token"].(string)

	if ts.IDToken == "" {
		return TokenSet{}, apierr.ErrProtocol.WithDetail("grant response sin id_token")
	}

	claims := jwtv5.MapClaims{}
	if _, _, err := jwtv5.NewParser().ParseUnverified(ts.IDToken, claims); err == nil {
		if sub, err := claims.GetSubject(); err == nil {
			ts.SubscriberID = sub
		}
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			ts.IDTokenExpiresAt = exp.Time
		}
	}
	return ts, nil
}
