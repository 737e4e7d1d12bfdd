package purchase

// Cada endpoint de pagos recibe un record tipado; los campos y sus valores por
// defecto replican exactamente lo que la app oficial manda, incluidos los que
// siempre viajan vacíos. Sacar un campo "inútil" rompe el settlement.

type methodsPayload struct {
	PaymentType       string `json:"payment_type"`
	IsEnterprise      bool   `json:"is_enterprise"`
	PaymentTarget     string `json:"payment_target"`
	Lang              string `json:"lang"`
	IsReferral        bool   `json:"is_referral"`
	TokenConfirmation string `json:"token_confirmation"`
}

// Item es una línea de compra dentro de un settlement o un charge de bundle.
type Item struct {
	ItemCode    string `json:"item_code"`
	ProductType string `json:"product_type"`
	ItemPrice   int64  `json:"item_price"`
	ItemName    string `json:"item_name"`
	Tax         int64  `json:"tax"`
}

type settlementAdditional struct {
	OriginalPrice         int64  `json:"original_price"`
	IsSpendLimitTemporary bool   `json:"is_spend_limit_temporary"`
	MigrationType         string `json:"migration_type"`
	AkrabM2MGroupID       string `json:"akrab_m2m_group_id"`
	SpendLimitAmount      int64  `json:"spend_limit_amount"`
	IsSpendLimit          bool   `json:"is_spend_limit"`
	MissionID             string `json:"mission_id"`
	Tax                   int64  `json:"tax"`
	QuotaBonus            int64  `json:"quota_bonus"`
	Cashtag               string `json:"cashtag"`
	IsFamilyPlan          bool   `json:"is_family_plan"`
	ComboDetails          []any  `json:"combo_details"`
	IsSwitchPlan          bool   `json:"is_switch_plan"`
	DiscountRecurring     int64  `json:"discount_recurring"`
	IsAkrabM2M            bool   `json:"is_akrab_m2m"`
	BalanceType           string `json:"balance_type"`
	HasBonus              bool   `json:"has_bonus"`
	DiscountPromo         int64  `json:"discount_promo"`
}

type settlementPayload struct {
	TotalDiscount             int64                `json:"total_discount"`
	IsEnterprise              bool                 `json:"is_enterprise"`
	PaymentToken              string               `json:"payment_token"`
	TokenPayment              string               `json:"token_payment"`
	ActivatedAutobuyCode      string               `json:"activated_autobuy_code"`
	CCPaymentType             string               `json:"cc_payment_type"`
	IsMyXLWallet              bool                 `json:"is_myxl_wallet"`
	PIN                       string               `json:"pin"`
	EwalletPromoID            string               `json:"ewallet_promo_id"`
	Members                   []any                `json:"members"`
	TotalFee                  int64                `json:"total_fee"`
	Fingerprint               string               `json:"fingerprint"`
	AutobuyThresholdSetting   any                  `json:"autobuy_threshold_setting"`
	IsUsePoint                bool                 `json:"is_use_point"`
	Lang                      string               `json:"lang"`
	PaymentMethod             string               `json:"payment_method"`
	Timestamp                 int64                `json:"timestamp"`
	PointsGained              int64                `json:"points_gained"`
	CanTriggerRating          bool                 `json:"can_trigger_rating"`
	AkrabMembers              []any                `json:"akrab_members"`
	AkrabParentAlias          string               `json:"akrab_parent_alias"`
	ReferralUniqueCode        string               `json:"referral_unique_code"`
	Coupon                    string               `json:"coupon"`
	PaymentFor                string               `json:"payment_for"`
	WithUpsell                bool                 `json:"with_upsell"`
	TopupNumber               string               `json:"topup_number"`
	StageToken                string               `json:"stage_token"`
	AuthenticationID          string               `json:"authentication_id"`
	EncryptedPaymentToken     string               `json:"encrypted_payment_token"`
	Token                     string               `json:"token"`
	TokenConfirmation         string               `json:"token_confirmation"`
	AccessToken               string               `json:"access_token"`
	WalletNumber              string               `json:"wallet_number"`
	EncryptedAuthenticationID string               `json:"encrypted_authentication_id"`
	AdditionalData            settlementAdditional `json:"additional_data"`
	TotalAmount               int64                `json:"total_amount"`
	IsUsingAutobuy            bool                 `json:"is_using_autobuy"`
	Items                     []Item               `json:"items"`
}

type bundleAdditional struct {
	IsFamilyPlan bool   `json:"is_family_plan"`
	IsAkrabM2M   bool   `json:"is_akrab_m2m"`
	BalanceType  string `json:"balance_type"`
	HasBonus     bool   `json:"has_bonus"`
}

// bundleChargePayload es el charge directo por e-wallet: no pasa por
// settlement, el backend devuelve una URL de pago.
type bundleChargePayload struct {
	PaymentType               string           `json:"payment_type"`
	IsEnterprise              bool             `json:"is_enterprise"`
	PaymentTarget             string           `json:"payment_target"`
	Lang                      string           `json:"lang"`
	IsReferral                bool             `json:"is_referral"`
	TokenConfirmation         string           `json:"token_confirmation"`
	Items                     []Item           `json:"items"`
	TotalAmount               int64            `json:"total_amount"`
	PaymentMethod             string           `json:"payment_method"`
	IsMyXLWallet              bool             `json:"is_myxl_wallet"`
	IsUsePoint                bool             `json:"is_use_point"`
	TotalDiscount             int64            `json:"total_discount"`
	TotalFee                  int64            `json:"total_fee"`
	Coupon                    string           `json:"coupon"`
	PaymentFor                string           `json:"payment_for"`
	AdditionalData            bundleAdditional `json:"additional_data"`
	EncryptedPaymentToken     string           `json:"encrypted_payment_token"`
	EncryptedAuthenticationID string           `json:"encrypted_authentication_id"`
}

type statusPayload struct {
	OrderID string `json:"order_id"`
	Lang    string `json:"lang"`
}

type historyFilter struct {
	Status []string `json:"status"`
	Type   []string `json:"type"`
}

type historyPayload struct {
	IsEnterprise bool          `json:"is_enterprise"`
	Lang         string        `json:"lang"`
	Page         int           `json:"page"`
	Limit        int           `json:"limit"`
	Filter       historyFilter `json:"filter"`
}
