// Package client arma el cliente completo: identidad de dispositivo, pipeline
// firmado y los services de auth, catálogo, compra y cuenta, todo sobre una
// Config inmutable construida en el arranque.
package client

import (
	"fmt"

	"github.com/dropDatabas3/axel/internal/client/account"
	"github.com/dropDatabas3/axel/internal/client/auth"
	"github.com/dropDatabas3/axel/internal/client/catalog"
	"github.com/dropDatabas3/axel/internal/client/device"
	"github.com/dropDatabas3/axel/internal/client/envelope"
	"github.com/dropDatabas3/axel/internal/client/pipeline"
	"github.com/dropDatabas3/axel/internal/client/purchase"
	"github.com/dropDatabas3/axel/internal/config"
)

// Client agrupa los services del cliente móvil emulado.
type Client struct {
	Config   config.Config
	Device   device.Identity
	Auth     *auth.Manager
	Catalog  *catalog.Service
	Purchase *purchase.Service
	Account  *account.Service
}

// New construye el cliente. Falla rápido si la identidad de dispositivo no se
// puede cargar ni generar: sin device id estable no hay sesión utilizable.
func New(cfg config.Config, codec envelope.Codec, signer envelope.PaymentSigner) (*Client, error) {
	dev, err := device.Load(cfg.Device.IdentityFile)
	if err != nil {
		return nil, fmt.Errorf("device identity: %w", err)
	}

	pipe := pipeline.New(pipeline.Deps{
		Config: cfg,
		Device: dev,
		Codec:  codec,
	})

	cat := catalog.New(pipe)

	return &Client{
		Config:  cfg,
		Device:  dev,
		Auth:    auth.New(auth.Deps{Config: cfg, Device: dev}),
		Catalog: cat,
		Purchase: purchase.New(purchase.Deps{
			Config:   cfg,
			Pipeline: pipe,
			Catalog:  cat,
			Signer:   signer,
		}),
		Account: account.New(cfg, pipe),
	}, nil
}
