package metrics

import (
	"context"
	"errors"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounterSource struct {
	vals []any
	err  error
}

func (f *fakeCounterSource) MGet(ctx context.Context, keys ...string) *redis.SliceCmd {
	cmd := redis.NewSliceCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(f.vals)
	}
	return cmd
}

func TestExporter_Refresh(t *testing.T) {
	src := &fakeCounterSource{vals: []any{"10", "4", "6", "1234"}}
	e := &Exporter{client: src}

	e.refresh(context.Background())

	var m dto.Metric
	require.NoError(t, announceCount.Write(&m))
	assert.Equal(t, float64(10), m.GetGauge().GetValue())
}

func TestExporter_RefreshErrorIncrementsScrapeErrors(t *testing.T) {
	before := scrapeErrorsValue(t)
	src := &fakeCounterSource{err: errors.New("boom")}
	e := &Exporter{client: src}

	e.refresh(context.Background())

	assert.Equal(t, before+1, scrapeErrorsValue(t))
}

func scrapeErrorsValue(t *testing.T) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, scrapeErrors.Write(&m))
	return m.GetCounter().GetValue()
}
