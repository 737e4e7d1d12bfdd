// Package pipeline implementa el camino común de toda llamada firmada al API:
// cifrado del payload, headers deterministas, transporte y descifrado de la
// respuesta. El pipeline no reintenta nunca; la política de reintentos, si
// existe, es del caller.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/axel/internal/client/apierr"
	"github.com/dropDatabas3/axel/internal/client/axtime"
	"github.com/dropDatabas3/axel/internal/client/device"
	"github.com/dropDatabas3/axel/internal/client/envelope"
	"github.com/dropDatabas3/axel/internal/config"
	"github.com/dropDatabas3/axel/internal/metrics"
	"github.com/dropDatabas3/axel/internal/observability/logger"
)

// Deps contiene las dependencias del pipeline.
type Deps struct {
	Config config.Config
	Device device.Identity
	Codec  envelope.Codec
	// HTTPClient opcional; default: client con el timeout de config.
	HTTPClient *http.Client
	// Now permite fijar el reloj en tests. Default: time.Now.
	Now func() time.Time
}

// Pipeline es stateless entre invocaciones salvo por la identidad de
// dispositivo compartida (solo lectura).
type Pipeline struct {
	cfg   config.Config
	dev   device.Identity
	codec envelope.Codec
	http  *http.Client
	now   func() time.Time
}

// New construye el pipeline.
func New(deps Deps) *Pipeline {
	hc := deps.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: deps.Config.HTTP.Timeout}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		cfg:   deps.Config,
		dev:   deps.Device,
		codec: deps.Codec,
		http:  hc,
		now:   now,
	}
}

// Send cifra payload, arma los headers y devuelve el envelope descifrado.
// Un campo "error" a nivel de aplicación NO es un error acá: se devuelve en
// Response para que el caller lo interprete.
func (p *Pipeline) Send(ctx context.Context, path, method string, payload any, idToken string) (Response, error) {
	sealed, err := p.codec.Encrypt(p.cfg.API.Key, method, path, idToken, payload)
	if err != nil {
		return Response{}, apierr.ErrDecode.WithCause(err).WithDetail("encrypt " + path)
	}
	return p.transmit(ctx, path, sealed, idToken, sealed.Signature, p.requestAt(sealed.XTimeMillis, false))
}

// SendPayment es la variante de settlement: misma mecánica pero con la firma
// específica de pago en x-signature y x-request-at derivado del xtime del
// envelope.
func (p *Pipeline) SendPayment(ctx context.Context, path string, payload any, idToken, paymentSignature string) (Response, error) {
	sealed, err := p.codec.Encrypt(p.cfg.API.Key, http.MethodPost, path, idToken, payload)
	if err != nil {
		return Response{}, apierr.ErrDecode.WithCause(err).WithDetail("encrypt " + path)
	}
	return p.transmit(ctx, path, sealed, idToken, paymentSignature, p.requestAt(sealed.XTimeMillis, true))
}

func (p *Pipeline) requestAt(xtimeMillis int64, fromXTime bool) string {
	if fromXTime {
		return axtime.Extended(axtime.FromUnix(xtimeMillis / 1000))
	}
	return axtime.Extended(p.now())
}

func (p *Pipeline) transmit(ctx context.Context, path string, sealed envelope.Sealed, idToken, signature, requestAt string) (Response, error) {
	log := logger.From(ctx).With(
		logger.Layer("pipeline"),
		logger.Endpoint(path),
	)

	url := p.cfg.API.BaseURL + "/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(sealed.Body))
	if err != nil {
		return Response{}, apierr.ErrTransport.WithCause(err)
	}

	requestID := uuid.NewString()
	sigTimeSec := sealed.XTimeMillis / 1000

	req.Host = p.cfg.APIHost()
	req.Header.Set("content-type", "application/json; charset=utf-8")
	req.Header.Set("user-agent", p.cfg.API.UserAgent)
	req.Header.Set("x-api-key", p.cfg.API.Key)
	req.Header.Set("authorization", "Bearer "+idToken)
	req.Header.Set("x-hv", "v3")
	req.Header.Set("x-signature-time", strconv.FormatInt(sigTimeSec, 10))
	req.Header.Set("x-signature", signature)
	req.Header.Set("x-request-id", requestID)
	req.Header.Set("x-request-at", requestAt)
	req.Header.Set("x-version-app", p.cfg.API.ClientVersion)

	start := p.now()
	resp, err := p.http.Do(req)
	if err != nil {
		metrics.ObserveAPIRequest(path, "transport", time.Since(start))
		log.Warn("transporte falló", logger.RequestID(requestID), logger.Err(err))
		return Response{}, apierr.ErrTransport.WithCause(err).WithDetail(path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveAPIRequest(path, "transport", time.Since(start))
		return Response{}, apierr.ErrTransport.WithCause(err).WithDetail(path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObserveAPIRequest(path, "transport", time.Since(start))
		log.Warn("status no-2xx",
			logger.RequestID(requestID),
			logger.Status(resp.StatusCode),
		)
		return Response{}, apierr.ErrTransport.
			WithStatus(resp.StatusCode).
			WithRaw(raw).
			WithDetail(fmt.Sprintf("%s: status %d", path, resp.StatusCode))
	}

	// Un cuerpo que no parsea como JSON suele ser una página de error de un
	// intermediario, no un envelope.
	if !json.Valid(raw) {
		metrics.ObserveAPIRequest(path, "malformed", time.Since(start))
		return Response{}, apierr.ErrMalformedResponse.WithRaw(raw).WithDetail(path)
	}

	body, err := p.codec.Decrypt(p.cfg.API.Key, raw)
	if err != nil {
		metrics.ObserveAPIRequest(path, "decode", time.Since(start))
		log.Warn("descifrado falló", logger.RequestID(requestID), logger.Err(err))
		return Response{}, apierr.ErrDecode.WithCause(err).WithRaw(raw).WithDetail(path)
	}

	metrics.ObserveAPIRequest(path, "ok", time.Since(start))
	log.Debug("llamada completada",
		logger.RequestID(requestID),
		logger.Status(resp.StatusCode),
		logger.Duration(time.Since(start)),
	)

	return Response{Body: body, Raw: raw}, nil
}
