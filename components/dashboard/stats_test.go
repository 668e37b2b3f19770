package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statsPayload = `{
  "counts": {"porEstado": {"operativo": 30, "en_mantenimiento": 5}},
  "totals": {"equipos": 35, "costoTotal": 1250000.5},
  "timeSeries": [
    {"date": "2024-04", "mantenimientos": 7, "correctivos": 2},
    {"date": "2024-05", "mantenimientos": 9}
  ]
}`

func TestDecodeStats(t *testing.T) {
	stats, err := DecodeStats([]byte(statsPayload))
	require.NoError(t, err)
	assert.Equal(t, 30, stats.Counts["porEstado"]["operativo"])
	assert.Equal(t, 1250000.5, stats.Totals["costoTotal"])
	require.Len(t, stats.TimeSeries, 2)
	assert.Equal(t, "2024-04", stats.TimeSeries[0].Date)
	assert.Equal(t, float64(2), stats.TimeSeries[0].Metrics["correctivos"])
}

func TestDecodeStatsRejectsInvalidPayloads(t *testing.T) {
	for name, payload := range map[string]string{
		"not json":         `{`,
		"point no date":    `{"timeSeries": [{"visitas": 1}]}`,
		"textual metric":   `{"timeSeries": [{"date": "2024-05", "visitas": "muchas"}]}`,
		"counts not a map": `{"counts": {"porEstado": 3}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeStats([]byte(payload))
			require.Error(t, err)
			assert.True(t, goerrors.HasCategory(err, goerrors.CategoryExternal))
		})
	}
}

func TestTimePointMarshalRoundTrip(t *testing.T) {
	raw, err := json.Marshal(TimePoint{Date: "2024-05", Metrics: map[string]float64{"visitas": 3}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-05","visitas":3}`, string(raw))
}

func TestDatasetCounts(t *testing.T) {
	stats, err := DecodeStats([]byte(statsPayload))
	require.NoError(t, err)
	data, err := stats.Dataset("counts.porEstado")
	require.NoError(t, err)
	assert.True(t, data.Categorical)
	assert.Equal(t, []string{"en_mantenimiento", "operativo"}, data.Labels)
	assert.Equal(t, []float64{5, 30}, data.Series[0].Values)
}

func TestDatasetTimeSeries(t *testing.T) {
	stats, err := DecodeStats([]byte(statsPayload))
	require.NoError(t, err)
	data, err := stats.Dataset("timeSeries.mantenimientos, correctivos")
	require.NoError(t, err)
	assert.False(t, data.Categorical)
	assert.Equal(t, []string{"2024-04", "2024-05"}, data.Labels)
	require.Len(t, data.Series, 2)
	assert.Equal(t, []float64{7, 9}, data.Series[0].Values)
	assert.Equal(t, []float64{2, 0}, data.Series[1].Values, "points without the metric read as zero")
}

func TestDatasetMissingKeys(t *testing.T) {
	stats, err := DecodeStats([]byte(statsPayload))
	require.NoError(t, err)
	for _, key := range []string{"counts.porMarca", "timeSeries.visitas", "totals.equipos", "counts", "porEstado"} {
		_, err := stats.Dataset(key)
		require.Errorf(t, err, "key %s", key)
	}
	_, err = stats.Total("ingresos")
	require.Error(t, err)
	v, err := stats.Total("equipos")
	require.NoError(t, err)
	assert.Equal(t, float64(35), v)
}

type rawClient struct {
	raw json.RawMessage
	err error
}

func (c rawClient) Stats(context.Context, string) (json.RawMessage, error) {
	return c.raw, c.err
}

func TestBackendStatsSource(t *testing.T) {
	src := NewBackendStatsSource(rawClient{raw: json.RawMessage(statsPayload)})
	stats, err := src.FetchStats(context.Background(), "dashboard/equipos")
	require.NoError(t, err)
	assert.Equal(t, float64(35), stats.Totals["equipos"])

	boom := errors.New("Error de conexión")
	_, err = NewBackendStatsSource(rawClient{err: boom}).FetchStats(context.Background(), "dashboard/equipos")
	require.ErrorIs(t, err, boom)
}
