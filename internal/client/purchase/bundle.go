package purchase

import (
	"context"
	"net/http"
	"strings"

	"github.com/dropDatabas3/axel/internal/client/apierr"
	"github.com/dropDatabas3/axel/internal/client/auth"
	"github.com/dropDatabas3/axel/internal/client/catalog"
	"github.com/dropDatabas3/axel/internal/client/envelope"
	"github.com/dropDatabas3/axel/internal/metrics"
	"github.com/dropDatabas3/axel/internal/observability/logger"
)

// BundleItem identifica un paquete dentro de un bundle por su posición en el
// catálogo: familia, variante (nombre o código) y order de la opción.
type BundleItem struct {
	FamilyCode string
	Variant    string
	Order      int
	// Enterprise fija el eje enterprise de la resolución; nil lo deja a la
	// búsqueda combinatoria.
	Enterprise *bool
}

// BundleCharge inicia una compra de N paquetes por e-wallet. No pasa por
// settlement: un charge exitoso devuelve directamente los datos de pago
// (URL incluida). Se juntan los N confirmation tokens unidos por ";" y el
// código de opción del primer item actúa como payment target nominal. Si
// falla el detalle de cualquier item, el bundle entero aborta antes de hacer
// llamada de pago alguna.
func (s *Service) BundleCharge(ctx context.Context, ts auth.TokenSet, items []BundleItem, amount int64, paymentMethod string, enterprise bool) (map[string]any, error) {
	log := logger.From(ctx).With(
		logger.Component("purchase"),
		logger.Op("BundleCharge"),
		logger.Count(len(items)),
	)

	if len(items) == 0 {
		return nil, apierr.ErrInvalidInput.WithDetail("bundle sin items")
	}

	lines := make([]Item, 0, len(items))
	tokens := make([]string, 0, len(items))
	for _, it := range items {
		d, err := s.itemDetail(ctx, ts, it)
		if err != nil {
			metrics.ObservePurchase("bundle", "detail_failed")
			return nil, err
		}
		lines = append(lines, Item{
			ItemCode:  d.OptionCode,
			ItemPrice: d.Price,
			ItemName:  d.ItemName,
		})
		if d.ConfirmationToken != "" {
			tokens = append(tokens, d.ConfirmationToken)
		}
	}

	payload := bundleChargePayload{
		PaymentType:               paymentTypePurchase,
		IsEnterprise:              enterprise,
		PaymentTarget:             lines[0].ItemCode,
		Lang:                      "en",
		TokenConfirmation:         strings.Join(tokens, ";"),
		Items:                     lines,
		TotalAmount:               amount,
		PaymentMethod:             paymentMethod,
		PaymentFor:                defaultPaymentFor,
		AdditionalData:            bundleAdditional{BalanceType: balanceTypePrepaid},
		EncryptedPaymentToken:     envelope.EncryptedField(true),
		EncryptedAuthenticationID: envelope.EncryptedField(true),
	}

	res, err := s.pipe.Send(ctx, methodsPath, http.MethodPost, payload, ts.IDToken)
	if err != nil {
		metrics.ObservePurchase("bundle", "failed")
		return nil, err
	}
	if !res.Success() {
		metrics.ObservePurchase("bundle", "init_failed")
		return nil, apierr.ErrPaymentInitFailed.WithDetail(res.ErrorMessage())
	}

	metrics.ObservePurchase("bundle", "ok")
	log.Info("charge de bundle iniciado", logger.String("payment_method", paymentMethod))
	return res.Data(), nil
}

// itemDetail resuelve un BundleItem hasta su detalle de opción: familia por
// búsqueda de ejes, variante por nombre o código, opción por order.
func (s *Service) itemDetail(ctx context.Context, ts auth.TokenSet, it BundleItem) (catalog.Detail, error) {
	fd, err := s.catalog.ResolveFamily(ctx, ts, it.FamilyCode, it.Enterprise, nil)
	if err != nil {
		return catalog.Detail{}, err
	}
	variantCode, err := s.catalog.ResolveVariantCode(fd, it.Variant)
	if err != nil {
		return catalog.Detail{}, err
	}
	optionCode, err := s.catalog.ResolveOptionCode(fd, variantCode, it.Order)
	if err != nil {
		return catalog.Detail{}, err
	}
	return s.catalog.PackageDetail(ctx, ts, optionCode)
}
