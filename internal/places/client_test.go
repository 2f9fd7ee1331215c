package places

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locali/placesync/internal/errors"
	"github.com/locali/placesync/internal/httpclient"
)

const testBaseURL = "https://places.test"

// setupHTTPMock returns a client whose transport is an httpmock transport.
func setupHTTPMock(t *testing.T) (*HTTPClient, *httpmock.MockTransport) {
	t.Helper()

	transport := httpmock.NewMockTransport()
	hc := httpclient.New(&httpclient.Config{Transport: transport})
	t.Cleanup(hc.Close)

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: testBaseURL, Language: "it"}, hc, nil)
	require.NoError(t, err)
	return client, transport
}

const alphaDetails = `{
  "displayName": {"text": "Alpha Kiosk", "languageCode": "it"},
  "formattedAddress": "Via Roma 1",
  "regularOpeningHours": {"weekdayDescriptions": [
    "lunedì: 08:00–20:00", "martedì: 08:00–20:00", "mercoledì: 08:00–20:00",
    "giovedì: 08:00–20:00", "venerdì: 08:00–20:00", "sabato: 09:00–13:00", "domenica: Chiuso"
  ]},
  "photos": [{"name": "places/p1/photos/1", "widthPx": 4000}, {"name": "places/p1/photos/2"}]
}`

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestFetchMetadata(t *testing.T) {
	t.Parallel()

	client, transport := setupHTTPMock(t)
	transport.RegisterResponderWithQuery(http.MethodGet, testBaseURL+"/v1/places/p1",
		map[string]string{"languageCode": "it"},
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "test-key", req.Header.Get("X-Goog-Api-Key"))
			assert.Equal(t, detailsFieldMask, req.Header.Get("X-Goog-FieldMask"))
			return httpmock.NewStringResponse(http.StatusOK, alphaDetails), nil
		})

	md, err := client.FetchMetadata(t.Context(), "p1")
	require.NoError(t, err)

	assert.Equal(t, "Alpha Kiosk", md.Name)
	assert.Equal(t, "Via Roma 1", md.Address)
	assert.Len(t, md.WeekdayDescriptions, 7)
	assert.Equal(t, "domenica: Chiuso", md.WeekdayDescriptions[6])
	assert.Equal(t, "places/p1/photos/1", md.PhotoRef, "first photo wins")
}

func TestFetchMetadataLenientFields(t *testing.T) {
	t.Parallel()

	client, transport := setupHTTPMock(t)
	transport.RegisterResponder(http.MethodGet, `=~^`+testBaseURL+`/v1/places/bare`,
		httpmock.NewStringResponder(http.StatusOK, `{"id":"bare"}`))

	md, err := client.FetchMetadata(t.Context(), "bare")
	require.NoError(t, err)
	assert.Equal(t, Metadata{}, md)
}

func TestFetchMetadataUpstreamStatus(t *testing.T) {
	t.Parallel()

	client, transport := setupHTTPMock(t)
	longBody := `{"error":{"code":403,"message":"` + strings.Repeat("x", 400) + `"}}`
	transport.RegisterResponder(http.MethodGet, `=~^`+testBaseURL+`/v1/places/p9`,
		httpmock.NewStringResponder(http.StatusForbidden, longBody))

	_, err := client.FetchMetadata(t.Context(), "p9")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUpstreamUnavailable)
	assert.True(t, errors.IsDegraded(err))

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusForbidden, ue.StatusCode)
	assert.Equal(t, opDetails, ue.Op)
	assert.LessOrEqual(t, len(ue.Body), maxErrorBody)
}

func TestFetchMetadataTransportFailure(t *testing.T) {
	t.Parallel()

	client, transport := setupHTTPMock(t)
	transport.RegisterResponder(http.MethodGet, `=~^`+testBaseURL,
		httpmock.NewErrorResponder(errors.NewStd("connection reset")))

	_, err := client.FetchMetadata(t.Context(), "p1")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUpstreamUnavailable)
}

func TestFetchMetadataMalformedBody(t *testing.T) {
	t.Parallel()

	client, transport := setupHTTPMock(t)
	transport.RegisterResponder(http.MethodGet, `=~^`+testBaseURL,
		httpmock.NewStringResponder(http.StatusOK, `<html>oops</html>`))

	_, err := client.FetchMetadata(t.Context(), "p1")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUpstreamUnavailable)
}

func TestFetchMetadataCancelledIsNotDegraded(t *testing.T) {
	t.Parallel()

	client, transport := setupHTTPMock(t)
	transport.RegisterResponder(http.MethodGet, `=~^`+testBaseURL,
		httpmock.NewStringResponder(http.StatusOK, alphaDetails))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := client.FetchMetadata(ctx, "p1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.IsDegraded(err))
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
}

func TestResolvePhotoURI(t *testing.T) {
	t.Parallel()

	client, transport := setupHTTPMock(t)
	transport.RegisterResponderWithQuery(http.MethodGet, testBaseURL+"/v1/places/p1/photos/1/media",
		map[string]string{"maxWidthPx": "900", "skipHttpRedirect": "true"},
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "test-key", req.Header.Get("X-Goog-Api-Key"))
			assert.Empty(t, req.Header.Get("X-Goog-FieldMask"))
			return httpmock.NewStringResponse(http.StatusOK,
				`{"name":"places/p1/photos/1/media","photoUri":"https://lh3.test/p1.jpg"}`), nil
		})

	uri, err := client.ResolvePhotoURI(t.Context(), "places/p1/photos/1", 900)
	require.NoError(t, err)
	assert.Equal(t, "https://lh3.test/p1.jpg", uri)
}

func TestResolvePhotoURIMissing(t *testing.T) {
	t.Parallel()

	client, transport := setupHTTPMock(t)
	transport.RegisterResponder(http.MethodGet, `=~/media`,
		httpmock.NewStringResponder(http.StatusOK, `{"name":"places/p1/photos/1/media"}`))

	_, err := client.ResolvePhotoURI(t.Context(), "places/p1/photos/1", 900)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingPhotoURI)
	assert.NotErrorIs(t, err, errors.ErrUpstreamUnavailable)
}

func TestResolvePhotoURIRejected(t *testing.T) {
	t.Parallel()

	client, transport := setupHTTPMock(t)
	transport.RegisterResponder(http.MethodGet, `=~/media`,
		httpmock.NewStringResponder(http.StatusNotFound, `{"error":{"status":"NOT_FOUND"}}`))

	_, err := client.ResolvePhotoURI(t.Context(), "places/p1/photos/1", 900)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUpstreamUnavailable)
}

func TestTruncateBody(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncateBody([]byte(" short \n")))
	assert.Len(t, truncateBody([]byte(strings.Repeat("a", 500))), maxErrorBody)

	// A multi-byte rune cut by the limit is dropped rather than mangled.
	cut := truncateBody([]byte(strings.Repeat("a", maxErrorBody-1) + "è"))
	assert.Equal(t, strings.Repeat("a", maxErrorBody-1), cut)
}
