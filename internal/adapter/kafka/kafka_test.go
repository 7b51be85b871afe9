package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/covid-mortality-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var generatedAt = time.Date(2020, time.April, 12, 6, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return time.Date(2020, time.April, n, 0, 0, 0, 0, time.UTC)
}

func testReport() domain.Report {
	return domain.Report{
		GeneratedAt: generatedAt,
		Params:      domain.DefaultParams(),
		Stats:       domain.RunStats{Observations: 4, Regions: 2, Days: 2},
		National: domain.NationalDailySeries{Points: []domain.DailyDeaths{
			{Date: day(1), Deaths: 7},
			{Date: day(2), Deaths: 9},
		}},
		Projection: &domain.ProjectionSet{Points: []domain.ProjectedDeaths{{Date: day(3), Deaths: 10.5}}},
		CFR: domain.CFRResult{Defined: []domain.RegionCFR{
			{Region: "NY", MaxDeaths: 16, MaxCases: 200, CFR: 0.08},
		}},
		Choropleth: []domain.ChoroplethEntry{
			{Region: "NY", CFR: 0.08, Boundary: &domain.Boundary{
				Region:  "NY",
				Polygon: [][2]float64{{-79, 40}, {-72, 40}, {-72, 45}, {-79, 40}},
				Center:  [2]float64{-75.5, 42.9},
			}},
		},
	}
}

func newTestWriter(fw *fakeWriter) *Writer {
	return &Writer{writer: fw, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestSerializeToMessage(t *testing.T) {
	msg, err := serializeToMessage("cfr/NY", RecordCFR, generatedAt, cfrRecord{RecordType: RecordCFR, Region: "NY", CFR: 0.08})
	require.NoError(t, err)

	assert.Equal(t, []byte("cfr/NY"), msg.Key)
	assert.Contains(t, string(msg.Value), `"region":"NY"`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "record_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("cfr"), msg.Headers[0].Value)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(generatedAt.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestWriter_Publish(t *testing.T) {
	fw := &fakeWriter{}
	w := newTestWriter(fw)

	require.NoError(t, w.Publish(context.Background(), testReport()))

	// summary + 3 timeline days + 1 CFR region + 1 choropleth region
	require.Len(t, fw.msgs, 6)
	assert.Equal(t, "summary", string(fw.msgs[0].Key))
	assert.Equal(t, "national/2020-04-01", string(fw.msgs[1].Key))
	assert.Equal(t, "national/2020-04-03", string(fw.msgs[3].Key))
	assert.Equal(t, "cfr/NY", string(fw.msgs[4].Key))
	assert.Equal(t, "choropleth/NY", string(fw.msgs[5].Key))

	var region choroplethRecord
	require.NoError(t, json.Unmarshal(fw.msgs[5].Value, &region))
	require.NotNil(t, region.Boundary)
	assert.Len(t, region.Boundary.Polygon, 4)
	assert.Equal(t, [2]float64{-75.5, 42.9}, region.Boundary.Center)

	var projected timelineRecord
	require.NoError(t, json.Unmarshal(fw.msgs[3].Value, &projected))
	assert.Equal(t, timelineRecord{RecordType: RecordTimeline, Date: "2020-04-03", Deaths: 10.5, Source: domain.SourceProjected}, projected)

	var summary map[string]any
	require.NoError(t, json.Unmarshal(fw.msgs[0].Value, &summary))
	assert.Equal(t, true, summary["projected"])
	assert.NotContains(t, summary, "fit_error")
}

func TestWriter_PublishFitError(t *testing.T) {
	fw := &fakeWriter{}
	w := newTestWriter(fw)

	r := testReport()
	r.Projection = nil
	r.FitError = "insufficient data to fit: 2 distinct dates in window, need at least 6"
	require.NoError(t, w.Publish(context.Background(), r))

	require.Len(t, fw.msgs, 5)
	assert.JSONEq(t, `"`+r.FitError+`"`, mustField(t, fw.msgs[0].Value, "fit_error"))
}

type squareResolver struct{}

func (squareResolver) Boundary(_ context.Context, region string) (*domain.Boundary, error) {
	return &domain.Boundary{Region: region, Polygon: [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 0}}, Center: [2]float64{0.5, 0.5}}, nil
}

func count(v int64) *int64 { return &v }

func TestBuildMessages_ChoroplethAppliesExclusions(t *testing.T) {
	var obs []domain.Observation
	for i := 1; i <= 8; i++ {
		n := int64(i)
		obs = append(obs,
			domain.Observation{Date: day(i), Region: "Hawaii", Cases: count(4 * n), Deaths: count(n)},
			domain.Observation{Date: day(i), Region: "Ohio", Cases: count(5 * n), Deaths: count(n)},
		)
	}
	params := domain.DefaultParams()
	params.FitStart = day(1)
	report, err := domain.Analyze(context.Background(), obs, params, squareResolver{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	msgs, err := buildMessages(report)
	require.NoError(t, err)

	var cfrKeys, mapKeys []string
	for _, m := range msgs {
		switch string(m.Headers[0].Value) {
		case RecordCFR:
			cfrKeys = append(cfrKeys, string(m.Key))
		case RecordChoropleth:
			mapKeys = append(mapKeys, string(m.Key))
			var rec choroplethRecord
			require.NoError(t, json.Unmarshal(m.Value, &rec))
			require.NotNil(t, rec.Boundary)
			assert.Len(t, rec.Boundary.Polygon, 4)
			assert.InDelta(t, 0.2, rec.CFR, 1e-12)
		}
	}
	assert.Equal(t, []string{"cfr/Hawaii", "cfr/Ohio"}, cfrKeys)
	assert.Equal(t, []string{"choropleth/Ohio"}, mapKeys)
}

func TestWriter_PublishError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker down")}
	w := newTestWriter(fw)

	err := w.Publish(context.Background(), testReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestWriter_Close(t *testing.T) {
	fw := &fakeWriter{}
	require.NoError(t, newTestWriter(fw).Close())
	assert.True(t, fw.closed)
}

func mustField(t *testing.T, data []byte, key string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))
	raw, ok := m[key]
	require.True(t, ok, key)
	return string(raw)
}
