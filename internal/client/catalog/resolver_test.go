package catalog

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/axel/internal/client/apierr"
	"github.com/dropDatabas3/axel/internal/client/auth"
	"github.com/dropDatabas3/axel/internal/client/clienttest"
	"github.com/dropDatabas3/axel/internal/client/device"
	"github.com/dropDatabas3/axel/internal/client/pipeline"
)

// probedAxis registra qué combinación de ejes pidió cada llamada al listado.
type probedAxis struct {
	Migration  string
	Enterprise bool
}

// fakeCatalog es un backend de catálogo que responde con nombre no vacío solo
// para el conjunto de ejes en hits.
type fakeCatalog struct {
	t      *testing.T
	hits   map[probedAxis]map[string]any
	probes []probedAxis
}

func (f *fakeCatalog) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(f.t, err)
		payload, err := clienttest.Open(raw)
		require.NoError(f.t, err)

		ax := probedAxis{
			Migration:  payload["migration_type"].(string),
			Enterprise: payload["is_enterprise"].(bool),
		}
		f.probes = append(f.probes, ax)

		data, ok := f.hits[ax]
		if !ok {
			// Eje equivocado: el backend responde SUCCESS igual, con una
			// familia sin nombre.
			data = map[string]any{"package_family": map[string]any{"name": ""}}
		}
		w.Write(clienttest.Seal(map[string]any{"status": "SUCCESS", "data": data}))
	}
}

func familyFixture(name string) map[string]any {
	return map[string]any{
		"package_family": map[string]any{
			"name":        name,
			"payment_for": "BUY_PACKAGE",
		},
		"package_variants": []any{
			map[string]any{
				"name":                 "A",
				"package_variant_code": "u1",
				"package_options": []any{
					map[string]any{"order": 1, "package_option_code": "opt-a1", "name": "7d", "price": 10000},
				},
			},
			map[string]any{
				"name":                 "B",
				"package_variant_code": "u2",
				"package_options": []any{
					map[string]any{"order": 1, "package_option_code": "opt-b1", "name": "7d", "price": 15000},
					map[string]any{"order": 2, "package_option_code": "opt-b2", "name": "30d", "price": 45000},
				},
			},
		},
	}
}

func newCatalogService(t *testing.T, srvURL string) *Service {
	t.Helper()
	pipe := pipeline.New(pipeline.Deps{
		Config: clienttest.Config(srvURL),
		Device: device.Identity{DeviceID: "dev-1", Fingerprint: "fp-1"},
		Codec:  clienttest.Codec{},
	})
	return New(pipe)
}

func TestResolveFamily_ProbesInFixedOrder(t *testing.T) {
	fc := &fakeCatalog{t: t, hits: map[probedAxis]map[string]any{
		// Solo la última combinación del orden de prueba tiene la familia.
		{Migration: "PRIOH_TO_PRIO", Enterprise: true}: familyFixture("Prio Hot"),
	}}
	srv := httptest.NewServer(fc.handler())
	defer srv.Close()

	s := newCatalogService(t, srv.URL)
	fd, err := s.ResolveFamily(context.Background(), auth.TokenSet{IDToken: "id"}, "fam-1", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "Prio Hot", fd.Name)
	require.Equal(t, MigrationPriohToPrio, fd.MigrationType)

	want := []probedAxis{
		{"NONE", false},
		{"NONE", true},
		{"PRE_TO_PRIOH", false},
		{"PRE_TO_PRIOH", true},
		{"PRIOH_TO_PRIO", false},
		{"PRIOH_TO_PRIO", true},
	}
	require.Equal(t, want, fc.probes)
}

func TestResolveFamily_HintsCollapseAxes(t *testing.T) {
	fc := &fakeCatalog{t: t, hits: map[probedAxis]map[string]any{
		{Migration: "PRIOH_TO_PRIO", Enterprise: true}: familyFixture("Prio Hot"),
	}}
	srv := httptest.NewServer(fc.handler())
	defer srv.Close()

	ent := true
	mig := MigrationPriohToPrio
	s := newCatalogService(t, srv.URL)
	fd, err := s.ResolveFamily(context.Background(), auth.TokenSet{IDToken: "id"}, "fam-1", &ent, &mig)
	require.NoError(t, err)
	require.Equal(t, "Prio Hot", fd.Name)
	require.Len(t, fc.probes, 1)
}

func TestResolveFamily_ExhaustionIsFamilyNotFound(t *testing.T) {
	fc := &fakeCatalog{t: t, hits: nil}
	srv := httptest.NewServer(fc.handler())
	defer srv.Close()

	s := newCatalogService(t, srv.URL)
	_, err := s.ResolveFamily(context.Background(), auth.TokenSet{IDToken: "id"}, "fam-x", nil, nil)
	require.True(t, errors.Is(err, apierr.ErrFamilyNotFound))
	require.Len(t, fc.probes, len(probeOrder))
}

func TestResolveFamily_MemoPromotesLastHit(t *testing.T) {
	fc := &fakeCatalog{t: t, hits: map[probedAxis]map[string]any{
		{Migration: "PRE_TO_PRIOH", Enterprise: true}: familyFixture("Xtra Combo"),
	}}
	srv := httptest.NewServer(fc.handler())
	defer srv.Close()

	s := newCatalogService(t, srv.URL)
	ts := auth.TokenSet{IDToken: "id"}

	_, err := s.ResolveFamily(context.Background(), ts, "fam-1", nil, nil)
	require.NoError(t, err)
	require.Len(t, fc.probes, 4)

	// Segunda resolución: el memo pone primero el eje que funcionó, así que
	// hay exactamente una llamada más.
	fd, err := s.ResolveFamily(context.Background(), ts, "fam-1", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "Xtra Combo", fd.Name)
	require.Len(t, fc.probes, 5)
	require.Equal(t, probedAxis{"PRE_TO_PRIOH", true}, fc.probes[4])
}

func TestResolveFamily_ApplicationErrorStopsProbing(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write(clienttest.Seal(map[string]any{
			"status": "FAILED",
			"error":  "subscriber blocked",
		}))
	}))
	defer srv.Close()

	s := newCatalogService(t, srv.URL)
	_, err := s.ResolveFamily(context.Background(), auth.TokenSet{IDToken: "id"}, "fam-1", nil, nil)
	require.True(t, apierr.IsKind(err, apierr.KindApplication))
	require.Contains(t, err.Error(), "subscriber blocked")
	require.Equal(t, 1, calls)
}

func TestResolveVariantCode(t *testing.T) {
	fd := parseFamilyData(familyFixture("Prio Hot"), MigrationNone)

	code, err := New(nil).ResolveVariantCode(fd, "B")
	require.NoError(t, err)
	require.Equal(t, "u2", code)

	// Un identificador con forma de UUID pasa tal cual, sin buscar.
	uuid := "0b9f4cc8-aa2d-4e2c-8a61-0e8c9a51f001"
	code, err = New(nil).ResolveVariantCode(FamilyData{}, uuid)
	require.NoError(t, err)
	require.Equal(t, uuid, code)

	_, err = New(nil).ResolveVariantCode(fd, "Z")
	require.True(t, errors.Is(err, apierr.ErrVariantNotFound))
}

func TestResolveOptionCode(t *testing.T) {
	fd := parseFamilyData(familyFixture("Prio Hot"), MigrationNone)
	s := New(nil)

	code, err := s.ResolveOptionCode(fd, "u2", 2)
	require.NoError(t, err)
	require.Equal(t, "opt-b2", code)

	_, err = s.ResolveOptionCode(fd, "u2", 9)
	require.True(t, errors.Is(err, apierr.ErrOptionNotFound))

	_, err = s.ResolveOptionCode(fd, "u9", 1)
	require.True(t, errors.Is(err, apierr.ErrOptionNotFound))
}

func TestPackageDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		payload, err := clienttest.Open(raw)
		require.NoError(t, err)
		require.Equal(t, "opt-b2", payload["package_option_code"])

		w.Write(clienttest.Seal(map[string]any{
			"status": "SUCCESS",
			"data": map[string]any{
				"token_confirmation": "tok-conf-1",
				"package_option": map[string]any{
					"package_option_code": "opt-b2",
					"name":                "30d",
					"price":               45000,
				},
				"package_detail_variant": map[string]any{"name": "B"},
				"package_family":         map[string]any{"payment_for": "BUY_PACKAGE"},
			},
		}))
	}))
	defer srv.Close()

	s := newCatalogService(t, srv.URL)
	d, err := s.PackageDetail(context.Background(), auth.TokenSet{IDToken: "id"}, "opt-b2")
	require.NoError(t, err)
	require.Equal(t, "tok-conf-1", d.ConfirmationToken)
	require.Equal(t, "opt-b2", d.OptionCode)
	require.Equal(t, "B 30d", d.ItemName)
	require.Equal(t, int64(45000), d.Price)
	require.Equal(t, "BUY_PACKAGE", d.PaymentFor)
}
