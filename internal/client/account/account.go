// Package account agrupa los lectores de cuenta del suscriptor: perfil,
// saldo, resumen de cuota y segmentos del dashboard. Son llamadas de un solo
// paso sobre el pipeline firmado; la única lógica propia es el formateo de
// los banners de segmentos, que ocurre acá y en ningún otro lado.
package account

import (
	"context"
	"math"
	"net/http"

	"github.com/dropDatabas3/axel/internal/client/apierr"
	"github.com/dropDatabas3/axel/internal/client/auth"
	"github.com/dropDatabas3/axel/internal/client/pipeline"
	"github.com/dropDatabas3/axel/internal/config"
)

const (
	profilePath  = "api/v8/profile"
	balancePath  = "api/v8/packages/balance-and-credit"
	quotaPath    = "api/v8/packages/quota-summary"
	segmentsPath = "dashboard/api/v8/segments"
	loginPath    = "api/v8/auth/login"
)

// Service expone los lectores de cuenta.
type Service struct {
	cfg  config.Config
	pipe *pipeline.Pipeline
}

// New construye el service.
func New(cfg config.Config, pipe *pipeline.Pipeline) *Service {
	return &Service{cfg: cfg, pipe: pipe}
}

type profilePayload struct {
	AccessToken  string `json:"access_token"`
	AppVersion   string `json:"app_version"`
	IsEnterprise bool   `json:"is_enterprise"`
	Lang         string `json:"lang"`
}

type basicPayload struct {
	IsEnterprise bool   `json:"is_enterprise"`
	Lang         string `json:"lang"`
}

type segmentsPayload struct {
	AccessToken      string `json:"access_token"`
	AppVersion       string `json:"app_version"`
	CurrentBalance   int64  `json:"current_balance"`
	FamilyPlanRole   string `json:"family_plan_role"`
	IsEnterprise     bool   `json:"is_enterprise"`
	Lang             string `json:"lang"`
	ManufacturerName string `json:"manufacturer_name"`
	ModelName        string `json:"model_name"`
}

type loginPayload struct {
	AccessToken  string `json:"access_token"`
	IsEnterprise bool   `json:"is_enterprise"`
	Lang         string `json:"lang"`
}

// Profile trae el perfil del suscriptor.
func (s *Service) Profile(ctx context.Context, ts auth.TokenSet) (map[string]any, error) {
	payload := profilePayload{
		AccessToken: ts.AccessToken,
		AppVersion:  s.cfg.API.ClientVersion,
		Lang:        "en",
	}
	res, err := s.pipe.Send(ctx, profilePath, http.MethodPost, payload, ts.IDToken)
	if err != nil {
		return nil, err
	}
	if res.Data() == nil {
		return nil, apierr.ErrApplication.WithDetail(res.ErrorMessage())
	}
	return res.Data(), nil
}

// Balance devuelve el objeto balance del saldo prepago.
func (s *Service) Balance(ctx context.Context, ts auth.TokenSet) (map[string]any, error) {
	res, err := s.pipe.Send(ctx, balancePath, http.MethodPost, basicPayload{Lang: "en"}, ts.IDToken)
	if err != nil {
		return nil, err
	}
	data := res.Data()
	if data == nil {
		return nil, apierr.ErrApplication.WithDetail(res.ErrorMessage())
	}
	balance, _ := data["balance"].(map[string]any)
	if balance == nil {
		return nil, apierr.ErrProtocol.WithDetail("respuesta de saldo sin balance")
	}
	return balance, nil
}

// Quota es el agregado de cuota de datos principal.
type Quota struct {
	Remaining    int64
	Total        int64
	HasUnlimited bool
}

// QuotaSummary agrega las cuotas de datos. Una respuesta exitosa sin datos de
// cuota vale cero, no error.
func (s *Service) QuotaSummary(ctx context.Context, ts auth.TokenSet) (Quota, error) {
	res, err := s.pipe.Send(ctx, quotaPath, http.MethodPost, basicPayload{Lang: "en"}, ts.IDToken)
	if err != nil {
		return Quota{}, err
	}
	data := res.Data()
	if data == nil {
		return Quota{}, apierr.ErrApplication.WithDetail(res.ErrorMessage())
	}
	quota, _ := data["quota"].(map[string]any)
	qd, _ := quota["data"].(map[string]any)
	if qd == nil {
		return Quota{}, nil
	}
	return Quota{
		Remaining:    asInt(qd, "remaining"),
		Total:        asInt(qd, "total"),
		HasUnlimited: asBool(qd, "has_unlimited"),
	}, nil
}

// Loyalty es el resumen del programa de puntos.
type Loyalty struct {
	CurrentPoint int64
	TierName     string
}

// SpecialPackage es un banner "special for you" ya formateado para mostrar:
// cuota en GB y descuento en porcentaje se calculan acá, en el borde de
// presentación, nunca antes.
type SpecialPackage struct {
	Name            string
	OptionCode      string
	OriginalPrice   int64
	DiscountedPrice int64
	DiscountPercent int
	QuotaGB         float64
}

// Segments es la vista condensada del dashboard.
type Segments struct {
	Loyalty         Loyalty
	Notifications   []any
	SpecialPackages []SpecialPackage
}

// Segments trae loyalty, notificaciones y banners de ofertas del dashboard.
// currentBalance alimenta la segmentación de ofertas del lado del servidor.
func (s *Service) Segments(ctx context.Context, ts auth.TokenSet, currentBalance int64) (Segments, error) {
	payload := segmentsPayload{
		AccessToken:      ts.AccessToken,
		AppVersion:       s.cfg.API.ClientVersion,
		CurrentBalance:   currentBalance,
		FamilyPlanRole:   "NO_ROLE",
		Lang:             "id",
		ManufacturerName: s.cfg.Device.Name,
		ModelName:        s.cfg.Device.Model,
	}
	res, err := s.pipe.Send(ctx, segmentsPath, http.MethodPost, payload, ts.IDToken)
	if err != nil {
		return Segments{}, err
	}
	data := res.Data()
	if data == nil {
		return Segments{}, apierr.ErrApplication.WithDetail(res.ErrorMessage())
	}

	out := Segments{}

	loyalty, _ := data["loyalty"].(map[string]any)
	ld, _ := loyalty["data"].(map[string]any)
	out.Loyalty.CurrentPoint = asInt(ld, "current_point")
	tier, _ := ld["detail_tier"].(map[string]any)
	out.Loyalty.TierName, _ = tier["name"].(string)

	notification, _ := data["notification"].(map[string]any)
	out.Notifications, _ = notification["data"].([]any)

	sfy, _ := data["special_for_you"].(map[string]any)
	sd, _ := sfy["data"].(map[string]any)
	banners, _ := sd["banners"].([]any)
	for _, b := range banners {
		bm, ok := b.(map[string]any)
		if !ok {
			continue
		}
		out.SpecialPackages = append(out.SpecialPackages, formatBanner(bm))
	}
	return out, nil
}

// formatBanner convierte un banner crudo en su forma presentable: suma los
// beneficios de tipo DATA en bytes y los pasa a GB, y deriva el porcentaje de
// descuento redondeado del par de precios.
func formatBanner(bm map[string]any) SpecialPackage {
	var quotaBytes int64
	benefits, _ := bm["benefits"].([]any)
	for _, bf := range benefits {
		bfm, ok := bf.(map[string]any)
		if !ok {
			continue
		}
		if dt, _ := bfm["data_type"].(string); dt == "DATA" {
			quotaBytes += asInt(bfm, "total")
		}
	}

	original := asInt(bm, "original_price")
	discounted := asInt(bm, "discounted_price")
	percent := 0
	if original > 0 {
		percent = int(math.Round(float64(original-discounted) / float64(original) * 100))
	}

	family, _ := bm["family_name"].(string)
	title, _ := bm["title"].(string)
	validity, _ := bm["validity"].(string)
	code, _ := bm["action_param"].(string)

	return SpecialPackage{
		Name:            family + " (" + title + ") " + validity,
		OptionCode:      code,
		OriginalPrice:   original,
		DiscountedPrice: discounted,
		DiscountPercent: percent,
		QuotaGB:         float64(quotaBytes) / (1 << 30),
	}
}

// LoginInfo trae los datos post-login del suscriptor.
func (s *Service) LoginInfo(ctx context.Context, ts auth.TokenSet) (map[string]any, error) {
	payload := loginPayload{AccessToken: ts.AccessToken, Lang: "en"}
	res, err := s.pipe.Send(ctx, loginPath, http.MethodPost, payload, ts.IDToken)
	if err != nil {
		return nil, err
	}
	if res.Data() == nil {
		return nil, apierr.ErrApplication.WithDetail(res.ErrorMessage())
	}
	return res.Data(), nil
}

// PointBalance saca el saldo de puntos del login info.
func (s *Service) PointBalance(ctx context.Context, ts auth.TokenSet) (int64, error) {
	data, err := s.LoginInfo(ctx, ts)
	if err != nil {
		return 0, err
	}
	loyalty, _ := data["loyalty"].(map[string]any)
	return asInt(loyalty, "point_balance"), nil
}

func asInt(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

func asBool(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}
