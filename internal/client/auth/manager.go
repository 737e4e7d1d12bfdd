// Package auth maneja el ciclo de vida de los tokens contra el identity
// provider del carrier: emisión de OTP, redeem por password grant y refresh.
//
// Estados: Unauthenticated → OtpRequested → Authenticated →
// Authenticated(Refreshing) → Expired.
package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/axel/internal/client/apierr"
	"github.com/dropDatabas3/axel/internal/client/axtime"
	"github.com/dropDatabas3/axel/internal/client/device"
	"github.com/dropDatabas3/axel/internal/client/envelope"
	"github.com/dropDatabas3/axel/internal/config"
	"github.com/dropDatabas3/axel/internal/observability/logger"
	"github.com/dropDatabas3/axel/internal/util"
)

const (
	otpPath   = "/realms/xl-ciam/auth/otp"
	tokenPath = "/realms/xl-ciam/protocol/openid-connect/token"

	channelSMS = "SMS"

	sessionNotActive = "Session not active"
)

// Deps contiene las dependencias del manager.
type Deps struct {
	Config config.Config
	Device device.Identity
	Signer envelope.OTPSigner
	// HTTPClient opcional; default: client con el timeout de config.
	HTTPClient *http.Client
	// Now permite fijar el reloj en tests. Default: time.Now.
	Now func() time.Time
}

// Manager es el token lifecycle manager. El refresh se serializa: un solo
// refresh en vuelo por refresh token, porque el token refrescado invalida al
// anterior del lado del servidor.
type Manager struct {
	cfg    config.Config
	dev    device.Identity
	signer envelope.OTPSigner
	http   *http.Client
	now    func() time.Time
	sf     singleflight.Group
}

// New construye el manager.
func New(deps Deps) *Manager {
	hc := deps.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: deps.Config.HTTP.Timeout}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	signer := deps.Signer
	if signer == nil {
		signer = envelope.HMACSigner{}
	}
	return &Manager{
		cfg:    deps.Config,
		dev:    deps.Device,
		signer: signer,
		http:   hc,
		now:    now,
	}
}

// RequestOTP pide un challenge OTP por SMS y devuelve el subscriber id opaco.
// Contactos inválidos fallan localmente sin tocar la red.
func (m *Manager) RequestOTP(ctx context.Context, contact string) (string, error) {
	if !ValidContact(contact) {
		return "", apierr.ErrInvalidContact
	}

	log := logger.From(ctx).With(
		logger.Component("auth"),
		logger.Op("RequestOTP"),
		logger.Contact(util.MaskMSISDN(contact)),
	)

	u := m.cfg.API.CIAMBaseURL + otpPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", apierr.ErrTransport.WithCause(err)
	}

	q := req.URL.Query()
	q.Set("contact", contact)
	q.Set("contactType", channelSMS)
	q.Set("alternateContact", "false")
	req.URL.RawQuery = q.Encode()

	m.setCIAMHeaders(req, axtime.Extended(m.now()), "application/json")

	body, _, err := m.do(req)
	if err != nil {
		return "", err
	}

	if msg, ok := body["error"].(string); ok && msg != "" {
		log.Warn("OTP rechazado", logger.String("server_error", msg))
		return "", apierr.ErrApplication.WithDetail(msg)
	}
	sub, _ := body["subscriber_id"].(string)
	if sub == "" {
		return "", apierr.ErrProtocol.WithDetail("respuesta OTP sin subscriber_id")
	}

	log.Info("OTP solicitado")
	return sub, nil
}

// SubmitOTP canjea el código OTP por un TokenSet vía password grant. El
// código se valida localmente antes de firmar nada. Un campo error en una
// respuesta bien formada es terminal; no se reintenta.
func (m *Manager) SubmitOTP(ctx context.Context, apiKey, contact, code string) (TokenSet, error) {
	if !ValidContact(contact) {
		return TokenSet{}, apierr.ErrInvalidContact
	}
	if !ValidOTPCode(code) {
		return TokenSet{}, apierr.ErrInvalidOTPCode
	}

	log := logger.From(ctx).With(
		logger.Component("auth"),
		logger.Op("SubmitOTP"),
		logger.Contact(util.MaskMSISDN(contact)),
	)

	tsForSign, tsHeader := axtime.SignAndHeader(m.now())
	signature := m.signer.SignOTP(apiKey, tsForSign, contact, code, channelSMS)

	form := url.Values{}
	form.Set("contactType", channelSMS)
	form.Set("code", code)
	form.Set("grant_type", "password")
	form.Set("contact", contact)
	form.Set("scope", "openid")

	u := m.cfg.API.CIAMBaseURL + tokenPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenSet{}, apierr.ErrTransport.WithCause(err)
	}
	m.setCIAMHeaders(req, tsHeader, "application/x-www-form-urlencoded")
	req.Header.Set("Ax-Api-Signature", signature)

	body, _, err := m.do(req)
	if err != nil {
		return TokenSet{}, err
	}

	if msg, ok := body["error"].(string); ok && msg != "" {
		desc, _ := body["error_description"].(string)
		if desc == "" {
			desc = msg
		}
		log.Warn("redeem rechazado", logger.String("server_error", desc))
		return TokenSet{}, apierr.ErrAuthRejected.WithDetail(desc)
	}

	ts, err := newTokenSet(body)
	if err != nil {
		return TokenSet{}, err
	}
	log.Info("sesión iniciada")
	return ts, nil
}

// Refresh canjea el refresh token por un TokenSet nuevo. Un rechazo explícito
// de sesión inactiva se distingue como SessionExpired: el caller debe volver
// a autenticar por OTP, no tratarlo como fallo genérico.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (TokenSet, error) {
	v, err, _ := m.sf.Do(refreshToken, func() (any, error) {
		return m.refresh(ctx, refreshToken)
	})
	if err != nil {
		return TokenSet{}, err
	}
	return v.(TokenSet), nil
}

func (m *Manager) refresh(ctx context.Context, refreshToken string) (TokenSet, error) {
	log := logger.From(ctx).With(
		logger.Component("auth"),
		logger.Op("Refresh"),
	)

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	u := m.cfg.API.CIAMBaseURL + tokenPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenSet{}, apierr.ErrTransport.WithCause(err)
	}
	m.setCIAMHeaders(req, axtime.Compact(m.now()), "application/x-www-form-urlencoded")

	resp, err := m.http.Do(req)
	if err != nil {
		return TokenSet{}, apierr.ErrTransport.WithCause(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return TokenSet{}, apierr.ErrTransport.WithCause(err)
	}

	var body map[string]any
	jsonOK := json.Unmarshal(raw, &body) == nil

	if resp.StatusCode == http.StatusBadRequest && jsonOK {
		if desc, _ := body["error_description"].(string); desc == sessionNotActive {
			log.Info("refresh rechazado: sesión inactiva")
			return TokenSet{}, apierr.ErrSessionExpired.WithRaw(raw)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return TokenSet{}, apierr.ErrProtocol.
			WithStatus(resp.StatusCode).
			WithRaw(raw).
			WithDetail("refresh grant no-2xx")
	}
	if !jsonOK {
		return TokenSet{}, apierr.ErrMalformedResponse.WithRaw(raw)
	}
	if msg, ok := body["error"].(string); ok && msg != "" {
		return TokenSet{}, apierr.ErrAuthRejected.WithDetail(msg)
	}

	ts, err := newTokenSet(body)
	if err != nil {
		return TokenSet{}, err
	}
	log.Info("tokens refrescados")
	return ts, nil
}

// setCIAMHeaders arma los headers Ax-* comunes a toda llamada al identity
// provider. El par device id / fingerprint es siempre el mismo por sesión.
func (m *Manager) setCIAMHeaders(req *http.Request, requestAt, contentType string) {
	req.Host = m.cfg.CIAMHost()
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Authorization", "Basic "+m.cfg.API.BasicAuth)
	req.Header.Set("Ax-Device-Id", m.dev.DeviceID)
	req.Header.Set("Ax-Fingerprint", m.dev.Fingerprint)
	req.Header.Set("Ax-Request-At", requestAt)
	req.Header.Set("Ax-Request-Device", m.cfg.Device.Name)
	req.Header.Set("Ax-Request-Device-Model", m.cfg.Device.Model)
	req.Header.Set("Ax-Request-Id", uuid.NewString())
	req.Header.Set("Ax-Substype", m.cfg.Device.SubscriberType)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", m.cfg.API.UserAgent)
}

// do ejecuta el request y parsea el JSON. No distingue errores de negocio:
// eso es del caller.
func (m *Manager) do(req *http.Request) (map[string]any, int, error) {
	resp, err := m.http.Do(req)
	if err != nil {
		return nil, 0, apierr.ErrTransport.WithCause(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, apierr.ErrTransport.WithCause(err)
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, resp.StatusCode, apierr.ErrMalformedResponse.WithRaw(raw).WithStatus(resp.StatusCode)
	}
	return body, resp.StatusCode, nil
}
