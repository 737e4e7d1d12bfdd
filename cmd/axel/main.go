// axel es el CLI del cliente: sesión OTP, catálogo, compras y lecturas de
// cuenta. Es glue de presentación; toda la lógica vive en internal/client.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/axel/internal/client"
	"github.com/dropDatabas3/axel/internal/client/auth"
	"github.com/dropDatabas3/axel/internal/client/catalog"
	"github.com/dropDatabas3/axel/internal/client/envelope"
	"github.com/dropDatabas3/axel/internal/client/purchase"
	"github.com/dropDatabas3/axel/internal/config"
	"github.com/dropDatabas3/axel/internal/metrics"
	"github.com/dropDatabas3/axel/internal/observability/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg    config.Config
	client *client.Client

	// refreshToken alimenta los comandos autenticados; los tokens viven solo
	// lo que dura el proceso.
	refreshToken string
}

// session canjea el refresh token por un TokenSet fresco para este proceso.
func (a *app) session(ctx context.Context) (auth.TokenSet, error) {
	if a.refreshToken == "" {
		return auth.TokenSet{}, fmt.Errorf("falta --refresh-token (o AXEL_REFRESH_TOKEN); primero `axel login`")
	}
	return a.client.Auth.Refresh(ctx, a.refreshToken)
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func run() error {
	var (
		flagConfig      = ""
		flagEnvFile     = ".env"
		flagMetricsAddr = ""
	)
	a := &app{refreshToken: os.Getenv("AXEL_REFRESH_TOKEN")}

	root := &cobra.Command{
		Use:           "axel",
		Short:         "Cliente de línea de comandos del backend móvil del carrier",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagEnvFile != "" {
				// .env es opcional; si existe, se carga antes que la config.
				_ = godotenv.Load(flagEnvFile)
			}

			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			a.cfg = cfg

			logger.Init(logger.Config{
				Env:         cfg.Log.Env,
				Level:       cfg.Log.Level,
				ServiceName: "axel",
				Version:     cfg.API.ClientVersion,
			})

			cl, err := client.New(cfg, envelope.GCMCodec{}, envelope.HMACSigner{})
			if err != nil {
				return err
			}
			a.client = cl

			if addr := firstNonEmpty(flagMetricsAddr, cfg.Metrics.Addr); addr != "" {
				startMetrics(addr)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", flagConfig, "ruta a config.yaml (opcional; env AXEL_* como fallback)")
	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", flagEnvFile, "ruta a .env (si existe, se carga)")
	root.PersistentFlags().StringVar(&flagMetricsAddr, "metrics-addr", flagMetricsAddr, "addr opcional para exponer /metrics")
	root.PersistentFlags().StringVar(&a.refreshToken, "refresh-token", a.refreshToken, "refresh token de la sesión (env AXEL_REFRESH_TOKEN)")

	root.AddCommand(
		loginCmd(a),
		otpCmd(a),
		refreshCmd(a),
		profileCmd(a),
		balanceCmd(a),
		quotaCmd(a),
		segmentsCmd(a),
		familyCmd(a),
		buyCmd(a),
		bundleCmd(a),
		statusCmd(a),
		historyCmd(a),
	)

	return root.Execute()
}

func startMetrics(addr string) {
	handler := metrics.Register(prometheus.DefaultRegisterer)
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", handler)
	go func() {
		if err := http.ListenAndServe(addr, r); err != nil {
			logger.L().Warn("metrics listener terminó", logger.Err(err))
		}
	}()
}

func loginCmd(a *app) *cobra.Command {
	var contact string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Pide un OTP por SMS y canjea el código por una sesión",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.client.Auth.RequestOTP(ctx, contact); err != nil {
				return err
			}
			fmt.Printf("OTP enviado a %s. Código: ", contact)
			reader := bufio.NewReader(os.Stdin)
			code, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			ts, err := a.client.Auth.SubmitOTP(ctx, a.cfg.API.Key, contact, strings.TrimSpace(code))
			if err != nil {
				return err
			}
			return printTokens(ts)
		},
	}
	cmd.Flags().StringVar(&contact, "contact", "", "número en formato 628... (requerido)")
	_ = cmd.MarkFlagRequired("contact")
	return cmd
}

func otpCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "otp",
		Short: "Operaciones OTP no interactivas",
	}

	var reqContact string
	request := &cobra.Command{
		Use:   "request",
		Short: "Pide un OTP por SMS",
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := a.client.Auth.RequestOTP(cmd.Context(), reqContact)
			if err != nil {
				return err
			}
			return printJSON(map[string]string{"subscriber_id": sub})
		},
	}
	request.Flags().StringVar(&reqContact, "contact", "", "número en formato 628... (requerido)")
	_ = request.MarkFlagRequired("contact")

	var subContact, subCode string
	submit := &cobra.Command{
		Use:   "submit",
		Short: "Canjea un código OTP por tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := a.client.Auth.SubmitOTP(cmd.Context(), a.cfg.API.Key, subContact, subCode)
			if err != nil {
				return err
			}
			return printTokens(ts)
		},
	}
	submit.Flags().StringVar(&subContact, "contact", "", "número en formato 628... (requerido)")
	submit.Flags().StringVar(&subCode, "code", "", "código OTP de 6 caracteres (requerido)")
	_ = submit.MarkFlagRequired("contact")
	_ = submit.MarkFlagRequired("code")

	cmd.AddCommand(request, submit)
	return cmd
}

func refreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Canjea el refresh token por un set de tokens nuevo",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			return printTokens(ts)
		},
	}
}

func printTokens(ts auth.TokenSet) error {
	return printJSON(map[string]any{
		"access_token":  ts.AccessToken,
		"id_token":      ts.IDToken,
		"refresh_token": ts.RefreshToken,
		"subscriber_id": ts.SubscriberID,
		"expires_at":    ts.IDTokenExpiresAt,
	})
}

func profileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Perfil del suscriptor",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			data, err := a.client.Account.Profile(cmd.Context(), ts)
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
}

func balanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Saldo y crédito",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			data, err := a.client.Account.Balance(cmd.Context(), ts)
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
}

func quotaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Resumen de cuota de datos",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			q, err := a.client.Account.QuotaSummary(cmd.Context(), ts)
			if err != nil {
				return err
			}
			return printJSON(q)
		},
	}
}

func segmentsCmd(a *app) *cobra.Command {
	var balance int64
	cmd := &cobra.Command{
		Use:   "segments",
		Short: "Segmentos del dashboard: loyalty, notificaciones y ofertas",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			seg, err := a.client.Account.Segments(cmd.Context(), ts, balance)
			if err != nil {
				return err
			}
			return printJSON(seg)
		},
	}
	cmd.Flags().Int64Var(&balance, "balance", 0, "saldo actual para segmentar ofertas")
	return cmd
}

func migrationFlag(s string) (*catalog.MigrationType, error) {
	if s == "" {
		return nil, nil
	}
	mt := catalog.MigrationType(s)
	switch mt {
	case catalog.MigrationNone, catalog.MigrationPreToPrioh, catalog.MigrationPriohToPrio:
		return &mt, nil
	}
	return nil, fmt.Errorf("migration-type inválido: %q", s)
}

func familyCmd(a *app) *cobra.Command {
	var (
		code       string
		enterprise bool
		migration  string
	)
	cmd := &cobra.Command{
		Use:   "family",
		Short: "Resuelve una familia del catálogo y lista sus variantes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := a.session(cmd.Context())
			if err != nil {
				return err
			}

			var entHint *bool
			if cmd.Flags().Changed("enterprise") {
				entHint = &enterprise
			}
			migHint, err := migrationFlag(migration)
			if err != nil {
				return err
			}

			fd, err := a.client.Catalog.ResolveFamily(cmd.Context(), ts, code, entHint, migHint)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"name":           fd.Name,
				"payment_for":    fd.PaymentFor,
				"is_enterprise":  fd.IsEnterprise,
				"migration_type": fd.MigrationType,
				"variants":       fd.Variants,
			})
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "código de familia (requerido)")
	cmd.Flags().BoolVar(&enterprise, "enterprise", false, "fijar el eje enterprise")
	cmd.Flags().StringVar(&migration, "migration-type", "", "fijar el eje de migración (NONE|PRE_TO_PRIOH|PRIOH_TO_PRIO)")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func buyCmd(a *app) *cobra.Command {
	var (
		optionCode string
		amount     int64
		enterprise bool
	)
	cmd := &cobra.Command{
		Use:   "buy",
		Short: "Compra una opción contra el saldo",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			opts := purchase.BuyOptions{Enterprise: enterprise}
			if cmd.Flags().Changed("amount") {
				opts.AmountOverride = &amount
			}
			res, err := a.client.Purchase.Buy(cmd.Context(), ts, optionCode, opts)
			if err != nil {
				return err
			}
			if res.RawResponse != "" {
				// Resultado financiero sin descifrar: se muestra tal cual.
				fmt.Println(res.RawResponse)
				return nil
			}
			return printJSON(res.Body)
		},
	}
	cmd.Flags().StringVar(&optionCode, "option-code", "", "código de opción (requerido)")
	cmd.Flags().Int64Var(&amount, "amount", 0, "monto a cobrar; default: precio de lista")
	cmd.Flags().BoolVar(&enterprise, "enterprise", false, "compra enterprise")
	_ = cmd.MarkFlagRequired("option-code")
	return cmd
}

// parseBundleItem interpreta familia:variante:order.
func parseBundleItem(s string) (purchase.BundleItem, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return purchase.BundleItem{}, fmt.Errorf("item inválido %q; formato familia:variante:order", s)
	}
	order, err := strconv.Atoi(parts[2])
	if err != nil {
		return purchase.BundleItem{}, fmt.Errorf("order inválido en %q: %w", s, err)
	}
	return purchase.BundleItem{FamilyCode: parts[0], Variant: parts[1], Order: order}, nil
}

func bundleCmd(a *app) *cobra.Command {
	var (
		rawItems []string
		amount   int64
		method   string
	)
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Inicia un charge de bundle por e-wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			items := make([]purchase.BundleItem, 0, len(rawItems))
			for _, raw := range rawItems {
				it, err := parseBundleItem(raw)
				if err != nil {
					return err
				}
				items = append(items, it)
			}
			data, err := a.client.Purchase.BundleCharge(cmd.Context(), ts, items, amount, method, false)
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
	cmd.Flags().StringArrayVar(&rawItems, "item", nil, "item familia:variante:order (repetible, requerido)")
	cmd.Flags().Int64Var(&amount, "amount", 0, "monto total (requerido)")
	cmd.Flags().StringVar(&method, "method", "SHOPEEPAY", "método e-wallet")
	_ = cmd.MarkFlagRequired("item")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func statusCmd(a *app) *cobra.Command {
	var orderID string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Estado de una transacción",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			body, err := a.client.Purchase.PaymentStatus(cmd.Context(), ts, orderID)
			if err != nil {
				return err
			}
			return printJSON(body)
		},
	}
	cmd.Flags().StringVar(&orderID, "order-id", "", "order id (requerido)")
	_ = cmd.MarkFlagRequired("order-id")
	return cmd
}

func historyCmd(a *app) *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Historial de transacciones",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			data, err := a.client.Purchase.TransactionHistory(cmd.Context(), ts, page, limit)
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "página")
	cmd.Flags().IntVar(&limit, "limit", 20, "items por página")
	return cmd
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
