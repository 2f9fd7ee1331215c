package places

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceDetailsPassesStatusThrough(t *testing.T) {
	t.Parallel()

	client, transport := setupHTTPMock(t)
	transport.RegisterResponderWithQuery(http.MethodGet, testBaseURL+"/v1/places/p1",
		map[string]string{"languageCode": "en", "regionCode": "GB"},
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, proxyFieldMask, req.Header.Get("X-Goog-FieldMask"))
			return httpmock.NewStringResponse(http.StatusTooManyRequests, `{"error":"quota"}`), nil
		})

	raw, err := client.PlaceDetails(t.Context(), "p1", "en", "GB")
	require.NoError(t, err)
	assert.False(t, raw.OK())
	assert.Equal(t, http.StatusTooManyRequests, raw.StatusCode)
	assert.Equal(t, map[string]any{"error": "quota"}, raw.Details())
}

func TestRawResponseDetailsFallsBackToText(t *testing.T) {
	t.Parallel()

	raw := RawResponse{StatusCode: http.StatusBadGateway, Body: []byte("upstream exploded")}
	assert.Equal(t, "upstream exploded", raw.Details())
}

func TestNarrowDetails(t *testing.T) {
	t.Parallel()

	body := []byte(`{
	  "id": "p1",
	  "displayName": {"text": "not exposed"},
	  "photos": [{"name": "places/p1/photos/1", "widthPx": 4000, "heightPx": 3000, "authorAttributions": []}],
	  "regularOpeningHours": {"openNow": true}
	}`)

	view := NarrowDetails(body)
	assert.Equal(t, "p1", view.ID)
	require.Len(t, view.Photos, 1)
	assert.Equal(t, PhotoView{Name: "places/p1/photos/1", WidthPx: 4000, HeightPx: 3000}, view.Photos[0])
	assert.Nil(t, view.CurrentOpeningHours)

	out, err := json.Marshal(view)
	require.NoError(t, err)
	assert.JSONEq(t, `{
	  "id": "p1",
	  "photos": [{"name": "places/p1/photos/1", "widthPx": 4000, "heightPx": 3000}],
	  "currentOpeningHours": null,
	  "regularOpeningHours": {"openNow": true}
	}`, string(out))
}

func TestNarrowDetailsEmpty(t *testing.T) {
	t.Parallel()

	out, err := json.Marshal(NarrowDetails([]byte(`not json`)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"photos":[],"currentOpeningHours":null,"regularOpeningHours":null}`, string(out))
}

func TestValidPhotoName(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidPhotoName("places/p1/photos/abc"))
	assert.False(t, ValidPhotoName("photos/abc"))
	assert.False(t, ValidPhotoName("places/../secrets"))
	assert.False(t, ValidPhotoName(""))
}

func TestParseMaxWidth(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 900, ParseMaxWidth("", 900))
	assert.Equal(t, 400, ParseMaxWidth(" 400 ", 900))
	assert.Equal(t, 900, ParseMaxWidth("-1", 900))
	assert.Equal(t, 900, ParseMaxWidth("wide", 900))
}
