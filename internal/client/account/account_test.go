package account

import (
	"context"
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

func newAccountService(t *testing.T, srvURL string) *Service {
	t.Helper()
	cfg := clienttest.Config(srvURL)
	pipe := pipeline.New(pipeline.Deps{
		Config: cfg,
		Device: device.Identity{DeviceID: "dev-1", Fingerprint: "fp-1"},
		Codec:  clienttest.Codec{},
	})
	return New(cfg, pipe)
}

func session() auth.TokenSet {
	return auth.TokenSet{AccessToken: "acc-1", IDToken: "id-1"}
}

func TestBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(clienttest.Seal(map[string]any{
			"status": "SUCCESS",
			"data": map[string]any{
				"balance": map[string]any{"remaining": 25000, "expired_at": 1760000000},
			},
		}))
	}))
	defer srv.Close()

	s := newAccountService(t, srv.URL)
	b, err := s.Balance(context.Background(), session())
	require.NoError(t, err)
	require.EqualValues(t, 25000, b["remaining"])
}

func TestBalance_MissingObjectIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(clienttest.Seal(map[string]any{"status": "SUCCESS", "data": map[string]any{}}))
	}))
	defer srv.Close()

	s := newAccountService(t, srv.URL)
	_, err := s.Balance(context.Background(), session())
	require.True(t, apierr.IsKind(err, apierr.KindProtocol))
}

func TestQuotaSummary_EmptyQuotaIsZeroNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(clienttest.Seal(map[string]any{"status": "SUCCESS", "data": map[string]any{}}))
	}))
	defer srv.Close()

	s := newAccountService(t, srv.URL)
	q, err := s.QuotaSummary(context.Background(), session())
	require.NoError(t, err)
	require.Equal(t, Quota{}, q)
}

func TestQuotaSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(clienttest.Seal(map[string]any{
			"status": "SUCCESS",
			"data": map[string]any{
				"quota": map[string]any{
					"data": map[string]any{
						"remaining":     1073741824,
						"total":         5368709120,
						"has_unlimited": true,
					},
				},
			},
		}))
	}))
	defer srv.Close()

	s := newAccountService(t, srv.URL)
	q, err := s.QuotaSummary(context.Background(), session())
	require.NoError(t, err)
	require.Equal(t, Quota{Remaining: 1073741824, Total: 5368709120, HasUnlimited: true}, q)
}

func TestSegments_FormatsBannersAtPresentationBoundary(t *testing.T) {
	var payloadGot map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		p, err := clienttest.Open(raw)
		require.NoError(t, err)
		payloadGot = p
		w.Write(clienttest.Seal(map[string]any{
			"status": "SUCCESS",
			"data": map[string]any{
				"loyalty": map[string]any{
					"data": map[string]any{
						"current_point": 420,
						"detail_tier":   map[string]any{"name": "Gold"},
					},
				},
				"notification": map[string]any{"data": []any{map[string]any{"id": "n1"}}},
				"special_for_you": map[string]any{
					"data": map[string]any{
						"banners": []any{
							map[string]any{
								"family_name":      "Xtra Combo",
								"title":            "Flex M",
								"validity":         "30d",
								"action_param":     "opt-sfy-1",
								"original_price":   100000,
								"discounted_price": 75000,
								"benefits": []any{
									map[string]any{"data_type": "DATA", "total": 3221225472},
									map[string]any{"data_type": "VOICE", "total": 600},
									map[string]any{"data_type": "DATA", "total": 1073741824},
								},
							},
						},
					},
				},
			},
		}))
	}))
	defer srv.Close()

	s := newAccountService(t, srv.URL)
	seg, err := s.Segments(context.Background(), session(), 25000)
	require.NoError(t, err)

	require.Equal(t, Loyalty{CurrentPoint: 420, TierName: "Gold"}, seg.Loyalty)
	require.Len(t, seg.Notifications, 1)

	require.Len(t, seg.SpecialPackages, 1)
	sp := seg.SpecialPackages[0]
	require.Equal(t, "Xtra Combo (Flex M) 30d", sp.Name)
	require.Equal(t, "opt-sfy-1", sp.OptionCode)
	// Solo los beneficios DATA suman: 3 GB + 1 GB.
	require.InDelta(t, 4.0, sp.QuotaGB, 0.001)
	require.Equal(t, 25, sp.DiscountPercent)

	require.EqualValues(t, 25000, payloadGot["current_balance"])
	require.Equal(t, "NO_ROLE", payloadGot["family_plan_role"])
	require.Equal(t, "samsung", payloadGot["manufacturer_name"])
}

func TestPointBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		p, err := clienttest.Open(raw)
		require.NoError(t, err)
		require.Equal(t, "acc-1", p["access_token"])
		w.Write(clienttest.Seal(map[string]any{
			"status": "SUCCESS",
			"data":   map[string]any{"loyalty": map[string]any{"point_balance": 77}},
		}))
	}))
	defer srv.Close()

	s := newAccountService(t, srv.URL)
	points, err := s.PointBalance(context.Background(), session())
	require.NoError(t, err)
	require.EqualValues(t, 77, points)
}
