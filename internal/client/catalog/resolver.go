// Package catalog resuelve el catálogo de tres niveles familia → variante →
// opción, incluyendo la búsqueda combinatoria sobre los ejes ocultos
// enterprise × migration del listado de familias.
package catalog

import (
	"context"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/axel/internal/client/apierr"
	"github.com/dropDatabas3/axel/internal/client/auth"
	"github.com/dropDatabas3/axel/internal/client/pipeline"
	"github.com/dropDatabas3/axel/internal/metrics"
	"github.com/dropDatabas3/axel/internal/observability/logger"
)

const (
	listPath      = "api/v8/xl-stores/options/list"
	familiesPath  = "api/v8/xl-stores/families"
	detailPath    = "api/v8/xl-stores/options/detail"
	addonsPath    = "api/v8/xl-stores/options/addons-pinky-box"
	interceptPath = "misc/api/v8/utility/intercept-page"

	// axesTTL limita cuánto vive el memo de ejes descubiertos. El snapshot
	// del catálogo en sí nunca se cachea.
	axesTTL = 5 * time.Minute
)

type axes struct {
	Migration  MigrationType
	Enterprise bool
}

// probeOrder es la secuencia fija de combinaciones. El orden y la ejecución
// estrictamente secuencial son parte del contrato: el backend es sensible a
// lookups duplicados concurrentes.
var probeOrder = []axes{
	{MigrationNone, false},
	{MigrationNone, true},
	{MigrationPreToPrioh, false},
	{MigrationPreToPrioh, true},
	{MigrationPriohToPrio, false},
	{MigrationPriohToPrio, true},
}

// Service expone las operaciones de catálogo sobre el pipeline firmado.
type Service struct {
	pipe     *pipeline.Pipeline
	axesMemo *gocache.Cache
}

// New construye el service.
func New(pipe *pipeline.Pipeline) *Service {
	return &Service{
		pipe:     pipe,
		axesMemo: gocache.New(axesTTL, time.Minute),
	}
}

type listPayload struct {
	IsShowTaggingTab     bool          `json:"is_show_tagging_tab"`
	IsDedicatedEvent     bool          `json:"is_dedicated_event"`
	IsTransactionRoutine bool          `json:"is_transaction_routine"`
	MigrationType        MigrationType `json:"migration_type"`
	PackageFamilyCode    string        `json:"package_family_code"`
	IsAutobuy            bool          `json:"is_autobuy"`
	IsEnterprise         bool          `json:"is_enterprise"`
	IsPDLP               bool          `json:"is_pdlp"`
	ReferralCode         string        `json:"referral_code"`
	IsMigration          bool          `json:"is_migration"`
	Lang                 string        `json:"lang"`
}

type familiesPayload struct {
	MigrationType       string `json:"migration_type"`
	IsEnterprise        bool   `json:"is_enterprise"`
	IsShareable         bool   `json:"is_shareable"`
	PackageCategoryCode string `json:"package_category_code"`
	WithIconURL         bool   `json:"with_icon_url"`
	IsMigration         bool   `json:"is_migration"`
	Lang                string `json:"lang"`
}

type detailPayload struct {
	IsTransactionRoutine bool          `json:"is_transaction_routine"`
	MigrationType        MigrationType `json:"migration_type"`
	PackageFamilyCode    string        `json:"package_family_code"`
	FamilyRoleHub        string        `json:"family_role_hub"`
	IsAutobuy            bool          `json:"is_autobuy"`
	IsEnterprise         bool          `json:"is_enterprise"`
	IsShareable          bool          `json:"is_shareable"`
	IsMigration          bool          `json:"is_migration"`
	Lang                 string        `json:"lang"`
	PackageOptionCode    string        `json:"package_option_code"`
	IsUpsellPDP          bool          `json:"is_upsell_pdp"`
	PackageVariantCode   string        `json:"package_variant_code"`
}

type optionOnlyPayload struct {
	IsEnterprise      bool   `json:"is_enterprise"`
	Lang              string `json:"lang"`
	PackageOptionCode string `json:"package_option_code"`
}

// Family lista una familia con ejes fijos, sin búsqueda.
func (s *Service) Family(ctx context.Context, ts auth.TokenSet, familyCode string, ent bool, mt MigrationType) (FamilyData, error) {
	return s.fetchFamily(ctx, ts, familyCode, axes{Migration: mt, Enterprise: ent})
}

// ResolveFamily localiza la combinación de ejes bajo la cual familyCode
// devuelve un registro con nombre no vacío. Los hints colapsan su eje a un
// único valor; sin hints se recorre probeOrder en orden estricto y gana la
// primera combinación válida. Agotar todas es FamilyNotFound.
func (s *Service) ResolveFamily(ctx context.Context, ts auth.TokenSet, familyCode string, entHint *bool, migHint *MigrationType) (FamilyData, error) {
	log := logger.From(ctx).With(
		logger.Component("catalog"),
		logger.Op("ResolveFamily"),
		logger.FamilyCode(familyCode),
	)

	candidates := candidateAxes(entHint, migHint)
	if cached, ok := s.axesMemo.Get(familyCode); ok {
		candidates = promote(candidates, cached.(axes))
	}

	for i, ax := range candidates {
		fd, err := s.fetchFamily(ctx, ts, familyCode, ax)
		if err != nil {
			return FamilyData{}, err
		}
		if fd.Name == "" {
			metrics.ObserveResolverAttempt(false)
			continue
		}
		metrics.ObserveResolverAttempt(true)
		s.axesMemo.SetDefault(familyCode, ax)
		log.Info("familia resuelta",
			logger.MigrationType(string(ax.Migration)),
			logger.Enterprise(ax.Enterprise),
			logger.Attempt(i+1),
		)
		return fd, nil
	}

	return FamilyData{}, apierr.ErrFamilyNotFound.WithDetail(familyCode)
}

func (s *Service) fetchFamily(ctx context.Context, ts auth.TokenSet, familyCode string, ax axes) (FamilyData, error) {
	payload := listPayload{
		IsShowTaggingTab:  true,
		IsDedicatedEvent:  true,
		MigrationType:     ax.Migration,
		PackageFamilyCode: familyCode,
		IsEnterprise:      ax.Enterprise,
		IsPDLP:            true,
		Lang:              "en",
	}
	res, err := s.pipe.Send(ctx, listPath, http.MethodPost, payload, ts.IDToken)
	if err != nil {
		return FamilyData{}, err
	}
	if !res.Success() {
		return FamilyData{}, apierr.ErrApplication.WithDetail(familyCode + ": " + res.ErrorMessage())
	}
	return parseFamilyData(res.Data(), ax.Migration), nil
}

// ResolveVariantCode devuelve el código de variante para un código o nombre.
// Un identificador con pinta de UUID (36 caracteres con guiones) se usa tal
// cual, sin buscar; si no, se matchea por nombre exacto y gana el primero.
func (s *Service) ResolveVariantCode(fd FamilyData, nameOrCode string) (string, error) {
	if len(nameOrCode) == 36 && strings.Contains(nameOrCode, "-") {
		return nameOrCode, nil
	}
	for _, v := range fd.Variants {
		if v.Name == nameOrCode {
			return v.Code, nil
		}
	}
	return "", apierr.ErrVariantNotFound.WithDetail(nameOrCode)
}

// ResolveOptionCode devuelve el código de la opción cuyo campo order coincide
// dentro de la variante dada; gana el primero.
func (s *Service) ResolveOptionCode(fd FamilyData, variantCode string, order int) (string, error) {
	for _, v := range fd.Variants {
		if v.Code != variantCode {
			continue
		}
		for _, o := range v.Options {
			if o.Order == order {
				return o.Code, nil
			}
		}
	}
	return "", apierr.ErrOptionNotFound.WithDetail(variantCode)
}

// PackageDetail trae el detalle de una opción; es la única fuente válida del
// confirmation token para un settlement inmediato.
func (s *Service) PackageDetail(ctx context.Context, ts auth.TokenSet, optionCode string) (Detail, error) {
	payload := detailPayload{
		MigrationType:     MigrationNone,
		Lang:              "en",
		PackageOptionCode: optionCode,
	}
	res, err := s.pipe.Send(ctx, detailPath, http.MethodPost, payload, ts.IDToken)
	if err != nil {
		return Detail{}, err
	}
	if res.Data() == nil {
		return Detail{}, apierr.ErrApplication.WithDetail(optionCode + ": " + res.ErrorMessage())
	}
	return parseDetail(res.Data()), nil
}

// Families lista las familias de una categoría.
func (s *Service) Families(ctx context.Context, ts auth.TokenSet, categoryCode string) (map[string]any, error) {
	payload := familiesPayload{
		PackageCategoryCode: categoryCode,
		WithIconURL:         true,
		Lang:                "en",
	}
	res, err := s.pipe.Send(ctx, familiesPath, http.MethodPost, payload, ts.IDToken)
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		return nil, apierr.ErrApplication.WithDetail(categoryCode + ": " + res.ErrorMessage())
	}
	return res.Data(), nil
}

// Addons lista los addons de una opción.
func (s *Service) Addons(ctx context.Context, ts auth.TokenSet, optionCode string) (map[string]any, error) {
	payload := optionOnlyPayload{Lang: "en", PackageOptionCode: optionCode}
	res, err := s.pipe.Send(ctx, addonsPath, http.MethodPost, payload, ts.IDToken)
	if err != nil {
		return nil, err
	}
	if res.Data() == nil {
		return nil, apierr.ErrApplication.WithDetail(optionCode + ": " + res.ErrorMessage())
	}
	return res.Data(), nil
}

// InterceptPage es puramente informativo; el resultado nunca bloquea un
// flujo de compra.
func (s *Service) InterceptPage(ctx context.Context, ts auth.TokenSet, optionCode string, ent bool) (string, error) {
	payload := optionOnlyPayload{IsEnterprise: ent, Lang: "en", PackageOptionCode: optionCode}
	res, err := s.pipe.Send(ctx, interceptPath, http.MethodPost, payload, ts.IDToken)
	if err != nil {
		return "", err
	}
	return res.Status(), nil
}

func candidateAxes(entHint *bool, migHint *MigrationType) []axes {
	out := make([]axes, 0, len(probeOrder))
	for _, ax := range probeOrder {
		if entHint != nil && ax.Enterprise != *entHint {
			continue
		}
		if migHint != nil && ax.Migration != *migHint {
			continue
		}
		out = append(out, ax)
	}
	return out
}

// promote pone first al frente conservando el orden del resto. Si first no
// está en la lista (p.ej. un hint lo excluyó), la lista queda igual.
func promote(list []axes, first axes) []axes {
	present := false
	for _, ax := range list {
		if ax == first {
			present = true
			break
		}
	}
	if !present {
		return list
	}
	out := make([]axes, 0, len(list))
	out = append(out, first)
	for _, ax := range list {
		if ax != first {
			out = append(out, ax)
		}
	}
	return out
}
