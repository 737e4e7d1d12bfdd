package catalog

// MigrationType es el eje oculto del catálogo que distingue contextos de
// elegibilidad de migración de plan.
type MigrationType string

const (
	MigrationNone        MigrationType = "NONE"
	MigrationPreToPrioh  MigrationType = "PRE_TO_PRIOH"
	MigrationPriohToPrio MigrationType = "PRIOH_TO_PRIO"
)

// Option es una opción comprable dentro de una variante, diferenciada por el
// campo order (p.ej. escalones de duración). Precio en unidades menores.
type Option struct {
	Order int
	Code  string
	Name  string
	Price int64
}

// Variant agrupa opciones bajo una familia.
type Variant struct {
	Name    string
	Code    string
	Options []Option
}

// FamilyData es el snapshot de solo lectura de una familia del catálogo. Se
// obtiene fresco en cada resolución: precio y disponibilidad cambian, así que
// nunca se cachea entre llamadas.
type FamilyData struct {
	Name          string
	PaymentFor    string
	IsEnterprise  bool
	MigrationType MigrationType
	Variants      []Variant

	// Raw conserva el objeto data completo para los calls de detalle.
	Raw map[string]any
}

// Detail es el detalle de una opción concreta, fuente del confirmation token
// que ata la opción a la acción de pago inmediatamente posterior.
type Detail struct {
	ConfirmationToken string
	OptionCode        string
	OptionName        string
	VariantName       string
	ItemName          string
	Price             int64
	PaymentFor        string

	ActivatedAutobuyCode    string
	AutobuyThresholdSetting any
	CanTriggerRating        bool

	Raw map[string]any
}

func parseFamilyData(data map[string]any, mt MigrationType) FamilyData {
	fam := asMap(data, "package_family")
	fd := FamilyData{
		Name:          asString(fam, "name"),
		PaymentFor:    asString(fam, "payment_for"),
		IsEnterprise:  asBool(fam, "is_enterprise"),
		MigrationType: mt,
		Raw:           data,
	}
	for _, v := range asSlice(data, "package_variants") {
		vm, ok := v.(map[string]any)
		if !ok {
			continue
		}
		variant := Variant{
			Name: asString(vm, "name"),
			Code: asString(vm, "package_variant_code"),
		}
		for _, o := range asSlice(vm, "package_options") {
			om, ok := o.(map[string]any)
			if !ok {
				continue
			}
			variant.Options = append(variant.Options, Option{
				Order: int(asInt(om, "order")),
				Code:  asString(om, "package_option_code"),
				Name:  asString(om, "name"),
				Price: asInt(om, "price"),
			})
		}
		fd.Variants = append(fd.Variants, variant)
	}
	return fd
}

func parseDetail(data map[string]any) Detail {
	opt := asMap(data, "package_option")
	variant := asMap(data, "package_detail_variant")
	fam := asMap(data, "package_family")

	d := Detail{
		ConfirmationToken:       asString(data, "token_confirmation"),
		OptionCode:              asString(opt, "package_option_code"),
		OptionName:              asString(opt, "name"),
		VariantName:             asString(variant, "name"),
		Price:                   asInt(opt, "price"),
		PaymentFor:              asString(fam, "payment_for"),
		ActivatedAutobuyCode:    asString(opt, "activated_autobuy_code"),
		AutobuyThresholdSetting: opt["autobuy_threshold_setting"],
		CanTriggerRating:        asBool(opt, "can_trigger_rating"),
		Raw:                     data,
	}
	d.ItemName = joinNonEmpty(d.VariantName, d.OptionName)
	return d
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

// --- helpers de acceso sobre map[string]any ---

func asMap(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

func asSlice(m map[string]any, key string) []any {
	v, _ := m[key].([]any)
	return v
}

func asString(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func asBool(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
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
