package places

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/antonholmquist/jason"
)

// proxyFieldMask is what the browser needs for a live details lookup.
const proxyFieldMask = "id,photos,currentOpeningHours,regularOpeningHours"

// RawResponse is an upstream answer passed through by the proxy.
type RawResponse struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r RawResponse) OK() bool { return isSuccess(r.StatusCode) }

// Details returns the body decoded as JSON, or as a string when it is not
// JSON. Used for error pass-through.
func (r RawResponse) Details() any {
	var v any
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return string(r.Body)
	}
	return v
}

// PlaceDetails fetches details with the proxy field mask. The error is
// non-nil only when no response was received.
func (c *HTTPClient) PlaceDetails(ctx context.Context, placeRef, language, region string) (RawResponse, error) {
	query := url.Values{}
	query.Set("languageCode", language)
	query.Set("regionCode", region)

	status, body, err := c.get(ctx, c.detailsURL(placeRef, query), proxyFieldMask)
	if err != nil {
		return RawResponse{}, c.transportError(ctx, opDetails, placeRef, err)
	}
	return RawResponse{StatusCode: status, Body: body}, nil
}

// PhotoMedia resolves a photo name without interpreting the answer.
func (c *HTTPClient) PhotoMedia(ctx context.Context, name string, maxWidthPx int) (RawResponse, error) {
	status, body, err := c.get(ctx, c.mediaURL(name, maxWidthPx), "")
	if err != nil {
		return RawResponse{}, c.transportError(ctx, opMedia, name, err)
	}
	return RawResponse{StatusCode: status, Body: body}, nil
}

// PhotoView is one photo reference as exposed to the browser.
type PhotoView struct {
	Name     string `json:"name"`
	WidthPx  int64  `json:"widthPx,omitempty"`
	HeightPx int64  `json:"heightPx,omitempty"`
}

// DetailsView is the narrowed details document served by the proxy.
type DetailsView struct {
	ID                  string      `json:"id,omitempty"`
	Photos              []PhotoView `json:"photos"`
	CurrentOpeningHours any         `json:"currentOpeningHours"`
	RegularOpeningHours any         `json:"regularOpeningHours"`
}

// NarrowDetails keeps only the fields the browser reads. Photos is never
// nil; absent opening hours serialize as null.
func NarrowDetails(body []byte) DetailsView {
	view := DetailsView{Photos: []PhotoView{}}

	obj, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return view
	}

	view.ID, _ = obj.GetString("id")
	if photos, err := obj.GetObjectArray("photos"); err == nil {
		for _, p := range photos {
			var pv PhotoView
			pv.Name, _ = p.GetString("name")
			pv.WidthPx, _ = p.GetInt64("widthPx")
			pv.HeightPx, _ = p.GetInt64("heightPx")
			view.Photos = append(view.Photos, pv)
		}
	}
	view.CurrentOpeningHours = objectOrNil(obj, "currentOpeningHours")
	view.RegularOpeningHours = objectOrNil(obj, "regularOpeningHours")
	return view
}

func objectOrNil(obj *jason.Object, key string) any {
	v, err := obj.GetValue(key)
	if err != nil {
		return nil
	}
	return v.Interface()
}

// ValidPhotoName reports whether name is a photo resource of a place and
// cannot climb out of the media path.
func ValidPhotoName(name string) bool {
	return strings.HasPrefix(name, "places/") && !strings.Contains(name, "..")
}

// ParseMaxWidth parses a maxWidthPx query value, falling back to def.
func ParseMaxWidth(value string, def int) int {
	if w, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && w > 0 {
		return w
	}
	return def
}
