package purchase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/axel/internal/client/apierr"
	"github.com/dropDatabas3/axel/internal/client/auth"
	"github.com/dropDatabas3/axel/internal/client/catalog"
	"github.com/dropDatabas3/axel/internal/client/clienttest"
	"github.com/dropDatabas3/axel/internal/client/device"
	"github.com/dropDatabas3/axel/internal/client/envelope"
	"github.com/dropDatabas3/axel/internal/client/pipeline"
)

// fakeBackend simula el lado de pagos y catálogo: cuenta llamadas por path y
// permite sobreescribir handlers individuales.
type fakeBackend struct {
	t     *testing.T
	calls map[string]int

	// tokens emitidos, incrementales por llamada, para verificar que un
	// settlement usa los de SU transacción.
	detailSeq  int
	paymentSeq int

	settlements []map[string]any
	methods     []map[string]any
	lastSig     string

	failMethods       bool
	breakSettlement   bool
	failDetailForCode string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{t: t, calls: map[string]int{}}
}

func (f *fakeBackend) payload(r *http.Request) map[string]any {
	raw, err := io.ReadAll(r.Body)
	require.NoError(f.t, err)
	p, err := clienttest.Open(raw)
	require.NoError(f.t, err)
	return p
}

func (f *fakeBackend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.calls[r.URL.Path]++
		switch r.URL.Path {
		case "/api/v8/xl-stores/options/list":
			p := f.payload(r)
			data := map[string]any{"package_family": map[string]any{"name": ""}}
			// Todas las familias de test viven en el primer eje probado.
			if p["migration_type"] == "NONE" && p["is_enterprise"] == false && p["package_family_code"] != "fam-missing" {
				data = map[string]any{
					"package_family": map[string]any{"name": "Fam", "payment_for": "BUY_PACKAGE"},
					"package_variants": []any{
						map[string]any{
							"name":                 "A",
							"package_variant_code": "va-1",
							"package_options": []any{
								map[string]any{"order": 1, "package_option_code": "opt-a1", "name": "7d", "price": 10000},
							},
						},
						map[string]any{
							"name":                 "B",
							"package_variant_code": "vb-1",
							"package_options": []any{
								map[string]any{"order": 2, "package_option_code": "opt-b2", "name": "30d", "price": 45000},
							},
						},
					},
				}
			}
			w.Write(clienttest.Seal(map[string]any{"status": "SUCCESS", "data": data}))

		case "/api/v8/xl-stores/options/detail":
			p := f.payload(r)
			code := p["package_option_code"].(string)
			if code == f.failDetailForCode {
				w.Write(clienttest.Seal(map[string]any{"status": "FAILED", "error": "option gone"}))
				return
			}
			f.detailSeq++
			w.Write(clienttest.Seal(map[string]any{
				"status": "SUCCESS",
				"data": map[string]any{
					"token_confirmation": fmt.Sprintf("conf-%s-%d", code, f.detailSeq),
					"package_option": map[string]any{
						"package_option_code": code,
						"name":                "30d",
						"price":               45000,
					},
					"package_detail_variant": map[string]any{"name": "B"},
					"package_family":         map[string]any{"payment_for": ""},
				},
			}))

		case "/misc/api/v8/utility/intercept-page":
			w.Write(clienttest.Seal(map[string]any{"status": "SUCCESS"}))

		case "/payments/api/v8/payment-methods-option":
			p := f.payload(r)
			f.methods = append(f.methods, p)
			if f.failMethods {
				w.Write(clienttest.Seal(map[string]any{"status": "FAILED", "error": "payment channel closed"}))
				return
			}
			f.paymentSeq++
			w.Write(clienttest.Seal(map[string]any{
				"status": "SUCCESS",
				"data": map[string]any{
					"token_payment": fmt.Sprintf("pay-%d", f.paymentSeq),
					"timestamp":     1718000000 + f.paymentSeq,
					"payment_url":   "https://pay.example/x",
				},
			}))

		case "/payments/api/v8/settlement-balance":
			if f.breakSettlement {
				// JSON válido pero no descifrable: simula un envelope roto.
				w.Write([]byte(`{"xdata":"!!not-base64!!"}`))
				return
			}
			f.lastSig = r.Header.Get("x-signature")
			f.settlements = append(f.settlements, f.payload(r))
			w.Write(clienttest.Seal(map[string]any{
				"status": "SUCCESS",
				"data":   map[string]any{"order_id": "ord-77"},
			}))

		default:
			f.t.Errorf("path inesperado: %s", r.URL.Path)
		}
	}
}

func newService(t *testing.T, srvURL string) *Service {
	t.Helper()
	pipe := pipeline.New(pipeline.Deps{
		Config: clienttest.Config(srvURL),
		Device: device.Identity{DeviceID: "dev-1", Fingerprint: "fp-1"},
		Codec:  clienttest.Codec{},
	})
	return New(Deps{
		Config:   clienttest.Config(srvURL),
		Pipeline: pipe,
		Catalog:  catalog.New(pipe),
	})
}

func session() auth.TokenSet {
	return auth.TokenSet{AccessToken: "acc-1", IDToken: "id-1"}
}

func TestBuy_SettlementEchoesTransactionTokens(t *testing.T) {
	fb := newFakeBackend(t)
	srv := httptest.NewServer(fb.handler())
	defer srv.Close()

	s := newService(t, srv.URL)
	res, err := s.Buy(context.Background(), session(), "opt-b2", BuyOptions{})
	require.NoError(t, err)
	require.Equal(t, "SUCCESS", res.Body["status"])
	require.Empty(t, res.RawResponse)

	require.Len(t, fb.settlements, 1)
	st := fb.settlements[0]
	require.Equal(t, "conf-opt-b2-1", st["token_confirmation"])
	require.Equal(t, "pay-1", st["token_payment"])
	// El timestamp emitido por el servidor se repite textual.
	require.EqualValues(t, 1718000001, st["timestamp"])
	require.Equal(t, "BALANCE", st["payment_method"])
	// payment_for vacío en el detalle cae al default.
	require.Equal(t, "BUY_PACKAGE", st["payment_for"])
	require.EqualValues(t, 45000, st["total_amount"])

	items := st["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	require.Equal(t, "opt-b2", item["item_code"])
	require.Equal(t, "B 30d", item["item_name"])

	wantSig, err := envelope.HMACSigner{}.SignPayment(
		"test-api-key", "acc-1", 1718000001, "opt-b2", "pay-1", "BALANCE", "BUY_PACKAGE")
	require.NoError(t, err)
	require.Equal(t, wantSig, fb.lastSig)

	// El intercept es informativo pero ocurre antes de iniciar el pago.
	require.Equal(t, 1, fb.calls["/misc/api/v8/utility/intercept-page"])
}

func TestBuy_SecondTransactionUsesFreshTokens(t *testing.T) {
	fb := newFakeBackend(t)
	srv := httptest.NewServer(fb.handler())
	defer srv.Close()

	s := newService(t, srv.URL)
	_, err := s.Buy(context.Background(), session(), "opt-b2", BuyOptions{})
	require.NoError(t, err)
	_, err = s.Buy(context.Background(), session(), "opt-b2", BuyOptions{})
	require.NoError(t, err)

	require.Len(t, fb.settlements, 2)
	require.Equal(t, "conf-opt-b2-2", fb.settlements[1]["token_confirmation"])
	require.Equal(t, "pay-2", fb.settlements[1]["token_payment"])
}

func TestBuy_AmountOverride(t *testing.T) {
	fb := newFakeBackend(t)
	srv := httptest.NewServer(fb.handler())
	defer srv.Close()

	s := newService(t, srv.URL)
	override := int64(40000)
	_, err := s.Buy(context.Background(), session(), "opt-b2", BuyOptions{AmountOverride: &override})
	require.NoError(t, err)

	st := fb.settlements[0]
	require.EqualValues(t, 40000, st["total_amount"])
	// El precio original queda intacto en el item y en additional_data.
	item := st["items"].([]any)[0].(map[string]any)
	require.EqualValues(t, 45000, item["item_price"])
	require.EqualValues(t, 45000, st["additional_data"].(map[string]any)["original_price"])
}

func TestBuy_PaymentInitFailureIsTerminal(t *testing.T) {
	fb := newFakeBackend(t)
	fb.failMethods = true
	srv := httptest.NewServer(fb.handler())
	defer srv.Close()

	s := newService(t, srv.URL)
	_, err := s.Buy(context.Background(), session(), "opt-b2", BuyOptions{})
	require.True(t, errors.Is(err, apierr.ErrPaymentInitFailed))
	require.Contains(t, err.Error(), "payment channel closed")
	// Sin reintentos y sin settlement.
	require.Equal(t, 1, fb.calls["/payments/api/v8/payment-methods-option"])
	require.Zero(t, fb.calls["/payments/api/v8/settlement-balance"])
}

func TestBuy_UndecodableSettlementKeepsRawText(t *testing.T) {
	fb := newFakeBackend(t)
	fb.breakSettlement = true
	srv := httptest.NewServer(fb.handler())
	defer srv.Close()

	s := newService(t, srv.URL)
	res, err := s.Buy(context.Background(), session(), "opt-b2", BuyOptions{})
	require.NoError(t, err)
	require.Nil(t, res.Body)
	require.Contains(t, res.RawResponse, "xdata")
}

func TestBundleCharge_JoinsTokensAndTargetsFirstItem(t *testing.T) {
	fb := newFakeBackend(t)
	srv := httptest.NewServer(fb.handler())
	defer srv.Close()

	s := newService(t, srv.URL)
	items := []BundleItem{
		{FamilyCode: "fam-1", Variant: "A", Order: 1},
		{FamilyCode: "fam-1", Variant: "B", Order: 2},
	}
	data, err := s.BundleCharge(context.Background(), session(), items, 55000, "SHOPEEPAY", false)
	require.NoError(t, err)
	require.Equal(t, "https://pay.example/x", data["payment_url"])

	require.Len(t, fb.methods, 1)
	p := fb.methods[0]
	require.Equal(t, "opt-a1", p["payment_target"])
	require.Equal(t, "conf-opt-a1-1;conf-opt-b2-2", p["token_confirmation"])
	require.Equal(t, "SHOPEEPAY", p["payment_method"])
	require.EqualValues(t, 55000, p["total_amount"])
	require.Len(t, p["items"].([]any), 2)
}

func TestBundleCharge_ItemFailureAbortsBeforeAnyPaymentCall(t *testing.T) {
	fb := newFakeBackend(t)
	fb.failDetailForCode = "opt-b2"
	srv := httptest.NewServer(fb.handler())
	defer srv.Close()

	s := newService(t, srv.URL)
	items := []BundleItem{
		{FamilyCode: "fam-1", Variant: "A", Order: 1},
		{FamilyCode: "fam-1", Variant: "B", Order: 2},
		{FamilyCode: "fam-1", Variant: "A", Order: 1},
	}
	_, err := s.BundleCharge(context.Background(), session(), items, 55000, "SHOPEEPAY", false)
	require.True(t, apierr.IsKind(err, apierr.KindApplication))
	require.Zero(t, fb.calls["/payments/api/v8/payment-methods-option"])
	require.Zero(t, fb.calls["/payments/api/v8/settlement-balance"])
}

func TestBundleCharge_EmptyBundleIsInvalidInput(t *testing.T) {
	s := newService(t, "http://payments.invalid")
	_, err := s.BundleCharge(context.Background(), session(), nil, 0, "SHOPEEPAY", false)
	require.True(t, apierr.IsKind(err, apierr.KindInvalidInput))
}

func TestPaymentStatusAndHistory(t *testing.T) {
	var statusPayloadGot, historyPayloadGot map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		p, err := clienttest.Open(raw)
		require.NoError(t, err)
		switch r.URL.Path {
		case "/payments/api/v8/payment-status":
			statusPayloadGot = p
			w.Write(clienttest.Seal(map[string]any{"status": "SUCCESS", "data": map[string]any{"state": "PAID"}}))
		case "/payments/api/v8/transaction-history":
			historyPayloadGot = p
			w.Write(clienttest.Seal(map[string]any{"status": "SUCCESS", "data": map[string]any{"list": []any{}}}))
		}
	}))
	defer srv.Close()

	s := newService(t, srv.URL)

	body, err := s.PaymentStatus(context.Background(), session(), "ord-77")
	require.NoError(t, err)
	require.Equal(t, "SUCCESS", body["status"])
	require.Equal(t, "ord-77", statusPayloadGot["order_id"])

	data, err := s.TransactionHistory(context.Background(), session(), 2, 10)
	require.NoError(t, err)
	require.NotNil(t, data["list"])
	require.EqualValues(t, 2, historyPayloadGot["page"])
	require.EqualValues(t, 10, historyPayloadGot["limit"])
}
