package notification

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locali/placesync/internal/errors"
	"github.com/locali/placesync/internal/reconcile"
)

// webhookServer records bodies posted by the generic shoutrrr service.
type webhookServer struct {
	*httptest.Server
	mu     sync.Mutex
	bodies []string
}

func newWebhookServer(t *testing.T) *webhookServer {
	t.Helper()
	ws := &webhookServer{}
	ws.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		ws.mu.Lock()
		ws.bodies = append(ws.bodies, string(data))
		ws.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(ws.Close)
	return ws
}

func (ws *webhookServer) URL() string {
	return "generic://" + strings.TrimPrefix(ws.Server.URL, "http://") + "/hook?disabletls=yes"
}

func (ws *webhookServer) Bodies() []string {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return append([]string(nil), ws.bodies...)
}

func degradedReport() *reconcile.Report {
	return &reconcile.Report{
		RunID:     "run-1",
		Duration:  1500 * time.Millisecond,
		Updated:   2,
		Preserved: 1,
		Degraded: []reconcile.Degraded{
			{PlaceRef: "p9", Stage: reconcile.StageMetadata, Reason: "details p9: HTTP 503"},
		},
	}
}

func TestNotifierWithoutURLsIsNoop(t *testing.T) {
	t.Parallel()

	n, err := New(Config{URLs: []string{"", "  "}}, nil)
	require.NoError(t, err)
	assert.False(t, n.Enabled())
	assert.False(t, n.ShouldNotify(degradedReport(), nil))
	assert.NoError(t, n.NotifyRun(degradedReport(), nil))
}

func TestNewRejectsInvalidURL(t *testing.T) {
	t.Parallel()

	_, err := New(Config{URLs: []string{"nosuchservice://token@host"}}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestShouldNotify(t *testing.T) {
	t.Parallel()

	ws := newWebhookServer(t)
	n, err := New(Config{URLs: []string{ws.URL()}}, nil)
	require.NoError(t, err)

	clean := &reconcile.Report{Updated: 3}
	assert.False(t, n.ShouldNotify(clean, nil))
	assert.True(t, n.ShouldNotify(degradedReport(), nil))
	assert.True(t, n.ShouldNotify(clean, errors.NewStd("boom")))

	n.always = true
	assert.True(t, n.ShouldNotify(clean, nil))
}

func TestNotifyRunDeliversSummary(t *testing.T) {
	t.Parallel()

	ws := newWebhookServer(t)
	n, err := New(Config{URLs: []string{ws.URL()}, Timeout: 5 * time.Second}, nil)
	require.NoError(t, err)

	require.NoError(t, n.NotifyRun(degradedReport(), nil))

	bodies := ws.Bodies()
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], "p9 (metadata)")
	assert.Contains(t, bodies[0], "updated 2, preserved 1")
}

func TestNotifyRunSkipsCleanRun(t *testing.T) {
	t.Parallel()

	ws := newWebhookServer(t)
	n, err := New(Config{URLs: []string{ws.URL()}}, nil)
	require.NoError(t, err)

	require.NoError(t, n.NotifyRun(&reconcile.Report{Updated: 1}, nil))
	assert.Empty(t, ws.Bodies())
}

func TestFormatRun(t *testing.T) {
	t.Parallel()

	t.Run("degraded", func(t *testing.T) {
		t.Parallel()
		title, body := FormatRun(degradedReport(), nil)
		assert.Equal(t, "placesync: 1 location(s) degraded", title)
		assert.Equal(t,
			"updated 2, preserved 1, skipped 0, photos downloaded 0; degraded: p9 [metadata]\n"+
				"- p9 (metadata): details p9: HTTP 503\n"+
				"run run-1, 1.5s",
			body)
	})

	t.Run("failed without report", func(t *testing.T) {
		t.Parallel()
		title, body := FormatRun(nil, errors.NewStd("PLACES_API_KEY is not set"))
		assert.Equal(t, "placesync: run failed", title)
		assert.Equal(t, "Error: PLACES_API_KEY is not set", body)
	})

	t.Run("error is scrubbed", func(t *testing.T) {
		t.Parallel()
		_, body := FormatRun(nil, errors.NewStd("GET https://places.test/v1/places/p1?key=secret failed"))
		assert.NotContains(t, body, "secret")
	})

	t.Run("long degraded list is capped", func(t *testing.T) {
		t.Parallel()
		r := &reconcile.Report{}
		for range maxDegradedLines + 5 {
			r.Degraded = append(r.Degraded, reconcile.Degraded{PlaceRef: "p", Stage: reconcile.StageDownload})
		}
		_, body := FormatRun(r, nil)
		assert.Equal(t, maxDegradedLines, strings.Count(body, "- p (download)"))
		assert.Contains(t, body, "... and 5 more")
	})
}
