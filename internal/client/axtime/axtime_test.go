package axtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExtended_FixedOffsetWithColon(t *testing.T) {
	// 2023-10-20 05:34:56.780 UTC == 12:34:56.780 GMT+7
	utc := time.Date(2023, 10, 20, 5, 34, 56, 780_000_000, time.UTC)
	require.Equal(t, "2023-10-20T12:34:56.780+07:00", Extended(utc))
}

func TestExtended_ConvertsForeignZones(t *testing.T) {
	ny := time.FixedZone("EST", -5*60*60)
	in := time.Date(2024, 1, 2, 20, 0, 0, 0, ny)
	require.Equal(t, "2024-01-03T08:00:00.000+07:00", Extended(in))
}

func TestCompact_NoColonInOffset(t *testing.T) {
	utc := time.Date(2023, 10, 20, 5, 34, 56, 780_000_000, time.UTC)
	require.Equal(t, "2023-10-20T12:34:56.780+0700", Compact(utc))
}

func TestSignAndHeader_HeaderBackdatedFiveMinutes(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, Zone)
	forSign, forHeader := SignAndHeader(now)
	require.Equal(t, "2024-06-01T10:00:00.000+0700", forSign)
	require.Equal(t, "2024-06-01T09:55:00.000+0700", forHeader)

	// El par siempre difiere en exactamente cinco minutos, también cruzando
	// medianoche.
	midnight := time.Date(2024, 6, 2, 0, 2, 30, 0, Zone)
	forSign, forHeader = SignAndHeader(midnight)
	require.Equal(t, "2024-06-02T00:02:30.000+0700", forSign)
	require.Equal(t, "2024-06-01T23:57:30.000+0700", forHeader)
}

func TestFromUnix(t *testing.T) {
	got := FromUnix(1_700_000_000)
	require.Equal(t, "GMT+7", got.Location().String())
	require.Equal(t, int64(1_700_000_000), got.Unix())
}
