package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/eas-mesh-relay/internal/adapter/decoder"
	"github.com/couchcryptid/eas-mesh-relay/internal/domain"
	"github.com/couchcryptid/eas-mesh-relay/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock source ---

type mockSource struct {
	mu        sync.Mutex
	lines     []string
	errs      []error // returned before the lines, one per call
	committed []string
}

func (m *mockSource) Next(_ context.Context) (domain.RawHeader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return domain.RawHeader{}, err
	}
	if len(m.lines) == 0 {
		return domain.RawHeader{}, io.EOF
	}
	line := m.lines[0]
	m.lines = m.lines[1:]
	return domain.RawHeader{
		Text:       line,
		Source:     "mock",
		ReceivedAt: t0,
		Commit: func(context.Context) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.committed = append(m.committed, line)
			return nil
		},
	}, nil
}

func (m *mockSource) Committed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.committed...)
}

type blockingSource struct{}

func (blockingSource) Next(ctx context.Context) (domain.RawHeader, error) {
	<-ctx.Done()
	return domain.RawHeader{}, ctx.Err()
}

// --- helpers ---

const torHeader = "EAS: ZCZC-WXR-TOR-048081+0030-1171500-KFWD/NWS-"

func newTestPipeline(t *testing.T, src Source, d *mockDeliverer, policy domain.ChannelPolicy, logger *slog.Logger) (*Pipeline, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	proc := NewProcessor(testComposer(t, nil), policy, d, discardLogger(), metrics)
	return New(src, proc, NewDeduper(2*time.Minute, 16), logger, metrics), metrics
}

// --- tests ---

func TestPipeline_RelaysWarning(t *testing.T) {
	src := &mockSource{lines: []string{torHeader}}
	d := &mockDeliverer{}
	p, metrics := newTestPipeline(t, src, d, defaultPolicy, discardLogger())

	require.NoError(t, p.Run(context.Background()))

	calls := d.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "🚨Tornado Warning, Issued By: National Weather Service, Location: Exampleton", calls[0].Msg)
	assert.Equal(t, domain.Channel(1), calls[0].Channel)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.HeadersReceived), 0)
}

func TestPipeline_RepeatedHeadersRelayedOnce(t *testing.T) {
	src := &mockSource{lines: []string{
		torHeader, torHeader, torHeader,
		"EAS: NNNN", "EAS: NNNN", "EAS: NNNN",
	}}
	d := &mockDeliverer{}
	p, metrics := newTestPipeline(t, src, d, defaultPolicy, discardLogger())

	require.NoError(t, p.Run(context.Background()))

	assert.Len(t, d.Calls(), 1)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.AlertsSuppressed.WithLabelValues("duplicate")), 0)
	assert.Len(t, src.Committed(), 6, "every line should be committed")
}

func TestPipeline_EndMarkerLoggedForEachAlert(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	src := &mockSource{lines: []string{
		torHeader, "EAS: NNNN",
		"EAS: ZCZC-WXR-SVR-048113+0030-1171510-KFWD/NWS-", "EAS: NNNN",
	}}
	d := &mockDeliverer{}
	p, metrics := newTestPipeline(t, src, d, defaultPolicy, logger)

	require.NoError(t, p.Run(context.Background()))

	assert.Len(t, d.Calls(), 2)
	assert.Equal(t, 2, strings.Count(buf.String(), "end of SAME message"))
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.AlertsSuppressed.WithLabelValues("duplicate")), 0)
}

func TestPipeline_TestAlertWithoutTestChannel(t *testing.T) {
	src := &mockSource{lines: []string{"ZCZC-WXR-RWT-048081+0030-1171500-KFWD/NWS-"}}
	d := &mockDeliverer{}
	p, _ := newTestPipeline(t, src, d, defaultPolicy, discardLogger())

	require.NoError(t, p.Run(context.Background()))

	assert.Empty(t, d.Calls())
}

func TestPipeline_NationalAlert(t *testing.T) {
	src := &mockSource{lines: []string{"ZCZC-PEP-EAN-000000+0400-1171500-WHITEHSE-"}}
	d := &mockDeliverer{}
	p, _ := newTestPipeline(t, src, d, defaultPolicy, discardLogger())

	require.NoError(t, p.Run(context.Background()))

	calls := d.Calls()
	require.Len(t, calls, 1)
	assert.True(t, strings.HasSuffix(calls[0].Msg, " Nationwide Alert"), calls[0].Msg)
}

func TestPipeline_SkipsNoiseAndMalformed(t *testing.T) {
	src := &mockSource{lines: []string{
		"multimon-ng 1.3.0",
		"EAS: ZCZC-WXR-TOR-04808+0030-1171500-KFWD/NWS-",
		torHeader,
	}}
	d := &mockDeliverer{}
	p, metrics := newTestPipeline(t, src, d, defaultPolicy, discardLogger())

	require.NoError(t, p.Run(context.Background()))

	assert.Len(t, d.Calls(), 1)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ParseErrors), 0)
	assert.Len(t, src.Committed(), 3)
}

func TestPipeline_EOFLogsWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	p, _ := newTestPipeline(t, &mockSource{}, &mockDeliverer{}, defaultPolicy, logger)

	require.NoError(t, p.Run(context.Background()))

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "no longer monitoring")
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_SourceErrorBacksOff(t *testing.T) {
	src := &mockSource{
		errs:  []error{errors.New("broker unavailable")},
		lines: []string{torHeader},
	}
	d := &mockDeliverer{}
	p, _ := newTestPipeline(t, src, d, defaultPolicy, discardLogger())

	require.NoError(t, p.Run(context.Background()))

	assert.Len(t, d.Calls(), 1)
}

func TestPipeline_DecoderReadErrorStopsRun(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	src := decoder.NewSource(strings.NewReader(strings.Repeat("x", 70000)), "stdin", discardLogger())
	defer src.Close()
	p, _ := newTestPipeline(t, src, &mockDeliverer{}, defaultPolicy, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	require.NoError(t, ctx.Err(), "run should end when the source is exhausted, not on the deadline")
	assert.Contains(t, buf.String(), "read from alert source failed")
	assert.Contains(t, buf.String(), "no longer monitoring")
}

func TestPipeline_StopsOnCancel(t *testing.T) {
	p, metrics := newTestPipeline(t, blockingSource{}, &mockDeliverer{}, defaultPolicy, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		return p.CheckReadiness(context.Background()) == nil
	}, time.Second, 10*time.Millisecond)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PipelineRunning), 0)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("pipeline did not stop")
	}
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 400*time.Millisecond, nextBackoff(200*time.Millisecond, 5*time.Second))
	assert.Equal(t, 5*time.Second, nextBackoff(4*time.Second, 5*time.Second))
}

func TestSleepWithContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepWithContext(ctx, time.Minute))
	assert.True(t, sleepWithContext(context.Background(), 0))
}
