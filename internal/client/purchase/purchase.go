// Package purchase orquesta la transacción de compra multi-paso: quote →
// iniciación del método de pago → settlement firmado, más la variante bundle
// por e-wallet. Cada transacción acumula su contexto en una sola pasada y no
// lo reutiliza nunca; ante fallo parcial no hay compensación: el estado del
// lado del servidor se reconcilia vía status/history.
package purchase

import (
	"context"
	"errors"
	"net/http"

	"github.com/dropDatabas3/axel/internal/client/apierr"
	"github.com/dropDatabas3/axel/internal/client/auth"
	"github.com/dropDatabas3/axel/internal/client/catalog"
	"github.com/dropDatabas3/axel/internal/client/envelope"
	"github.com/dropDatabas3/axel/internal/client/pipeline"
	"github.com/dropDatabas3/axel/internal/config"
	"github.com/dropDatabas3/axel/internal/metrics"
	"github.com/dropDatabas3/axel/internal/observability/logger"
)

const (
	methodsPath    = "payments/api/v8/payment-methods-option"
	settlementPath = "payments/api/v8/settlement-balance"
	statusPath     = "payments/api/v8/payment-status"
	historyPath    = "payments/api/v8/transaction-history"

	paymentTypePurchase = "PURCHASE"
	methodBalance       = "BALANCE"
	defaultPaymentFor   = "BUY_PACKAGE"
	balanceTypePrepaid  = "PREPAID_BALANCE"
)

// Deps contiene las dependencias del orquestador.
type Deps struct {
	Config   config.Config
	Pipeline *pipeline.Pipeline
	Catalog  *catalog.Service
	Signer   envelope.PaymentSigner
}

// Service orquesta compras sobre el pipeline firmado. Las llamadas son
// estrictamente secuenciales: la salida de cada paso es insumo del siguiente.
type Service struct {
	cfg     config.Config
	pipe    *pipeline.Pipeline
	catalog *catalog.Service
	signer  envelope.PaymentSigner
}

// New construye el service.
func New(deps Deps) *Service {
	signer := deps.Signer
	if signer == nil {
		signer = envelope.HMACSigner{}
	}
	return &Service{
		cfg:     deps.Config,
		pipe:    deps.Pipeline,
		catalog: deps.Catalog,
		signer:  signer,
	}
}

// BuyOptions parametriza una compra simple.
type BuyOptions struct {
	// AmountOverride reemplaza el monto cobrado; nil usa el precio de lista.
	AmountOverride *int64
	Enterprise     bool
}

// Result es el desenlace de un settlement.
type Result struct {
	// Body es el envelope descifrado de la respuesta de settlement.
	Body map[string]any
	// RawResponse conserva el texto crudo cuando el settlement respondió pero
	// el cuerpo no se pudo descifrar. Un resultado financiero nunca se tira.
	RawResponse string
}

// paymentInit es lo capturado de payment-methods-option: el token de pago de
// un solo uso y el timestamp emitido por el servidor, que el settlement debe
// repetir textual.
type paymentInit struct {
	TokenPayment string
	Timestamp    int64
}

// Buy ejecuta el flujo de compra simple contra el saldo. El confirmation
// token sale del fetch de detalle inmediatamente anterior, de esta misma
// transacción; nunca de una anterior.
func (s *Service) Buy(ctx context.Context, ts auth.TokenSet, optionCode string, opts BuyOptions) (Result, error) {
	log := logger.From(ctx).With(
		logger.Component("purchase"),
		logger.Op("Buy"),
		logger.OptionCode(optionCode),
	)

	d, err := s.catalog.PackageDetail(ctx, ts, optionCode)
	if err != nil {
		metrics.ObservePurchase("buy", "detail_failed")
		return Result{}, err
	}
	if d.ConfirmationToken == "" {
		metrics.ObservePurchase("buy", "detail_failed")
		return Result{}, apierr.ErrProtocol.WithDetail("detalle sin token_confirmation")
	}

	paymentFor := d.PaymentFor
	if paymentFor == "" {
		// El detalle a veces viene con payment_for vacío.
		paymentFor = defaultPaymentFor
	}
	amount := d.Price
	if opts.AmountOverride != nil {
		amount = *opts.AmountOverride
	}

	// Llamada puramente informativa; un fallo acá jamás bloquea la compra.
	if _, err := s.catalog.InterceptPage(ctx, ts, optionCode, opts.Enterprise); err != nil {
		log.Debug("intercept-page falló", logger.Err(err))
	}

	init, err := s.initPayment(ctx, ts, methodsPayload{
		PaymentType:       paymentTypePurchase,
		IsEnterprise:      opts.Enterprise,
		PaymentTarget:     d.OptionCode,
		Lang:              "en",
		TokenConfirmation: d.ConfirmationToken,
	})
	if err != nil {
		metrics.ObservePurchase("buy", "init_failed")
		return Result{}, err
	}

	payload := settlementPayload{
		IsEnterprise:              opts.Enterprise,
		TokenPayment:              init.TokenPayment,
		ActivatedAutobuyCode:      d.ActivatedAutobuyCode,
		Members:                   []any{},
		AutobuyThresholdSetting:   d.AutobuyThresholdSetting,
		Lang:                      "en",
		PaymentMethod:             methodBalance,
		Timestamp:                 init.Timestamp,
		CanTriggerRating:          d.CanTriggerRating,
		AkrabMembers:              []any{},
		PaymentFor:                paymentFor,
		EncryptedPaymentToken:     envelope.EncryptedField(true),
		TokenConfirmation:         d.ConfirmationToken,
		AccessToken:               ts.AccessToken,
		EncryptedAuthenticationID: envelope.EncryptedField(true),
		AdditionalData: settlementAdditional{
			OriginalPrice:   d.Price,
			AkrabM2MGroupID: "false",
			ComboDetails:    []any{},
			BalanceType:     balanceTypePrepaid,
		},
		TotalAmount: amount,
		Items: []Item{{
			ItemCode:  d.OptionCode,
			ItemPrice: d.Price,
			ItemName:  d.ItemName,
		}},
	}

	signature, err := s.signer.SignPayment(
		s.cfg.API.Key, ts.AccessToken, init.Timestamp,
		d.OptionCode, init.TokenPayment, methodBalance, paymentFor,
	)
	if err != nil {
		metrics.ObservePurchase("buy", "sign_failed")
		return Result{}, apierr.ErrInvalidInput.WithCause(err).WithDetail("firma de pago")
	}

	res, err := s.pipe.SendPayment(ctx, settlementPath, payload, ts.IDToken, signature)
	if err != nil {
		var ae *apierr.APIError
		if errors.As(err, &ae) && ae.Kind == apierr.KindDecode && len(ae.Raw) > 0 {
			log.Warn("settlement respondió pero no descifra; se conserva el texto crudo")
			metrics.ObservePurchase("buy", "undecoded")
			return Result{RawResponse: string(ae.Raw)}, nil
		}
		metrics.ObservePurchase("buy", "failed")
		return Result{}, err
	}

	metrics.ObservePurchase("buy", "ok")
	log.Info("settlement enviado", logger.String("status", res.Status()))
	return Result{Body: res.Body}, nil
}

// initPayment pide el método de pago con el confirmation token. Un status
// distinto de SUCCESS es terminal: no hay reintento.
func (s *Service) initPayment(ctx context.Context, ts auth.TokenSet, payload methodsPayload) (paymentInit, error) {
	res, err := s.pipe.Send(ctx, methodsPath, http.MethodPost, payload, ts.IDToken)
	if err != nil {
		return paymentInit{}, err
	}
	if !res.Success() {
		return paymentInit{}, apierr.ErrPaymentInitFailed.WithDetail(res.ErrorMessage())
	}

	data := res.Data()
	token, _ := data["token_payment"].(string)
	tsRaw, ok := data["timestamp"].(float64)
	if token == "" || !ok {
		return paymentInit{}, apierr.ErrProtocol.WithDetail("payment-methods-option sin token_payment o timestamp")
	}
	return paymentInit{TokenPayment: token, Timestamp: int64(tsRaw)}, nil
}

// PaymentStatus consulta el estado de una transacción por order id.
func (s *Service) PaymentStatus(ctx context.Context, ts auth.TokenSet, orderID string) (map[string]any, error) {
	res, err := s.pipe.Send(ctx, statusPath, http.MethodPost, statusPayload{OrderID: orderID, Lang: "en"}, ts.IDToken)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// TransactionHistory lista transacciones pasadas, paginado.
func (s *Service) TransactionHistory(ctx context.Context, ts auth.TokenSet, page, limit int) (map[string]any, error) {
	payload := historyPayload{
		Lang:   "en",
		Page:   page,
		Limit:  limit,
		Filter: historyFilter{Status: []string{}, Type: []string{}},
	}
	res, err := s.pipe.Send(ctx, historyPath, http.MethodPost, payload, ts.IDToken)
	if err != nil {
		return nil, err
	}
	if res.Data() == nil {
		return nil, apierr.ErrApplication.WithDetail(res.ErrorMessage())
	}
	return res.Data(), nil
}
