package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// StatsSource fetches the aggregate statistics served at path.
type StatsSource interface {
	FetchStats(ctx context.Context, path string) (AggregateStats, error)
}

type rawStatsClient interface {
	Stats(ctx context.Context, path string) (json.RawMessage, error)
}

// BackendStatsSource decodes statistics served by the REST backend.
type BackendStatsSource struct {
	client rawStatsClient
}

// NewBackendStatsSource wraps a backend client.
func NewBackendStatsSource(client rawStatsClient) *BackendStatsSource {
	return &BackendStatsSource{client: client}
}

// FetchStats satisfies StatsSource.
func (s *BackendStatsSource) FetchStats(ctx context.Context, path string) (AggregateStats, error) {
	raw, err := s.client.Stats(ctx, path)
	if err != nil {
		return AggregateStats{}, err
	}
	return DecodeStats(raw)
}

// DecodeStats parses a statistics payload.
func DecodeStats(raw []byte) (AggregateStats, error) {
	var stats AggregateStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return AggregateStats{}, goerrors.Wrap(err, goerrors.CategoryExternal, "dashboard: invalid statistics payload").
			WithTextCode("STATS_INVALID")
	}
	return stats, nil
}

// Series is one named list of values aligned with Dataset.Labels.
type Series struct {
	Name   string
	Values []float64
}

// Dataset is the chart-ready projection of a data key.
type Dataset struct {
	Labels []string
	Series []Series
	// Categorical datasets come from counts; others from the time series.
	Categorical bool
}

// Dataset resolves a chart data key against the statistics.
func (s AggregateStats) Dataset(dataKey string) (Dataset, error) {
	source, name, ok := strings.Cut(dataKey, ".")
	if !ok || name == "" {
		return Dataset{}, missingKey(dataKey)
	}
	switch source {
	case "counts":
		counts, ok := s.Counts[name]
		if !ok {
			return Dataset{}, missingKey(dataKey)
		}
		labels := sortedKeys(counts)
		values := make([]float64, len(labels))
		for i, label := range labels {
			values[i] = float64(counts[label])
		}
		return Dataset{Labels: labels, Series: []Series{{Name: name, Values: values}}, Categorical: true}, nil
	case "timeSeries":
		metrics := strings.Split(name, ",")
		labels := make([]string, len(s.TimeSeries))
		for i, point := range s.TimeSeries {
			labels[i] = point.Date
		}
		out := Dataset{Labels: labels}
		for _, metric := range metrics {
			metric = strings.TrimSpace(metric)
			found := false
			values := make([]float64, len(s.TimeSeries))
			for i, point := range s.TimeSeries {
				if v, ok := point.Metrics[metric]; ok {
					values[i] = v
					found = true
				}
			}
			if !found {
				return Dataset{}, missingKey(source + "." + metric)
			}
			out.Series = append(out.Series, Series{Name: metric, Values: values})
		}
		return out, nil
	default:
		return Dataset{}, missingKey(dataKey)
	}
}

// Total returns a named total.
func (s AggregateStats) Total(key string) (float64, error) {
	v, ok := s.Totals[key]
	if !ok {
		return 0, missingKey("totals." + key)
	}
	return v, nil
}

func missingKey(key string) error {
	return goerrors.New(fmt.Sprintf("dashboard: statistics missing %s", key), goerrors.CategoryExternal).
		WithTextCode("STATS_KEY_MISSING").
		WithMetadata(map[string]any{"data_key": key})
}
