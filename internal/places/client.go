package places

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/antonholmquist/jason"

	"github.com/locali/placesync/internal/errors"
	"github.com/locali/placesync/internal/httpclient"
	"github.com/locali/placesync/internal/logger"
)

const (
	// detailsFieldMask lists the fields the cache needs. Every field affects billing.
	detailsFieldMask = "displayName,formattedAddress,regularOpeningHours.weekdayDescriptions,photos"

	// maxResponseBody bounds JSON responses from the provider.
	maxResponseBody = 4 << 20

	opDetails = "details"
	opMedia   = "media"
)

// Config configures an HTTPClient.
type Config struct {
	APIKey   string
	BaseURL  string // e.g. https://places.googleapis.com
	Language string // languageCode sent with detail requests
}

// HTTPClient is the Client backed by the Places API (New).
type HTTPClient struct {
	http     *httpclient.Client
	apiKey   string
	baseURL  string
	language string
	log      logger.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewClient returns a client for the provider. An empty API key is a
// configuration error.
func NewClient(cfg Config, hc *httpclient.Client, log logger.Logger) (*HTTPClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.Newf("places API key is required").
			Component("places").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://places.googleapis.com"
	}
	if cfg.Language == "" {
		cfg.Language = "it"
	}
	if hc == nil {
		hc = httpclient.New(nil)
	}
	if log == nil {
		log = logger.NewDiscardLogger()
	}

	return &HTTPClient{
		http:     hc,
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		language: cfg.Language,
		log:      log.Module("places"),
	}, nil
}

// FetchMetadata implements Client.
func (c *HTTPClient) FetchMetadata(ctx context.Context, placeRef string) (Metadata, error) {
	query := url.Values{}
	query.Set("languageCode", c.language)
	endpoint := c.detailsURL(placeRef, query)

	status, body, err := c.get(ctx, endpoint, detailsFieldMask)
	if err != nil {
		return Metadata{}, c.transportError(ctx, opDetails, placeRef, err)
	}
	if !isSuccess(status) {
		return Metadata{}, c.statusError(opDetails, placeRef, status, body)
	}

	obj, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return Metadata{}, c.decodeError(opDetails, placeRef, err)
	}
	return metadataFrom(obj), nil
}

// metadataFrom reads the response leniently: absent fields stay empty.
func metadataFrom(obj *jason.Object) Metadata {
	var md Metadata
	md.Name, _ = obj.GetString("displayName", "text")
	md.Address, _ = obj.GetString("formattedAddress")
	if days, err := obj.GetStringArray("regularOpeningHours", "weekdayDescriptions"); err == nil {
		md.WeekdayDescriptions = days
	}
	if photos, err := obj.GetObjectArray("photos"); err == nil && len(photos) > 0 {
		md.PhotoRef, _ = photos[0].GetString("name")
	}
	return md
}

// ResolvePhotoURI implements Client.
func (c *HTTPClient) ResolvePhotoURI(ctx context.Context, photoRef string, maxWidthPx int) (string, error) {
	status, body, err := c.get(ctx, c.mediaURL(photoRef, maxWidthPx), "")
	if err != nil {
		return "", c.transportError(ctx, opMedia, photoRef, err)
	}
	if !isSuccess(status) {
		return "", c.statusError(opMedia, photoRef, status, body)
	}

	obj, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return "", c.decodeError(opMedia, photoRef, err)
	}
	uri, err := obj.GetString("photoUri")
	if err != nil || uri == "" {
		return "", errors.New(fmt.Errorf("%w for %s", errors.ErrMissingPhotoURI, photoRef)).
			Component("places").
			Category(errors.CategoryImageFetch).
			Context("operation", opMedia).
			Context("photo_ref", photoRef).
			Build()
	}
	return uri, nil
}

func (c *HTTPClient) detailsURL(placeRef string, query url.Values) string {
	return c.baseURL + "/v1/places/" + url.PathEscape(placeRef) + "?" + query.Encode()
}

// mediaURL keeps the slashes of photoRef: it is a resource name such as
// places/{id}/photos/{photo}.
func (c *HTTPClient) mediaURL(photoRef string, maxWidthPx int) string {
	query := url.Values{}
	query.Set("maxWidthPx", strconv.Itoa(maxWidthPx))
	query.Set("skipHttpRedirect", "true")
	return c.baseURL + "/v1/" + strings.TrimPrefix(photoRef, "/") + "/media?" + query.Encode()
}

// get performs an authenticated GET and returns the status and body.
func (c *HTTPClient) get(ctx context.Context, endpoint, fieldMask string) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	header := http.Header{}
	header.Set("X-Goog-Api-Key", c.apiKey)
	header.Set("Accept", "application/json")
	if fieldMask != "" {
		header.Set("X-Goog-FieldMask", fieldMask)
	}

	c.log.Debug("Requesting upstream", logger.String("url", endpoint))

	resp, err := c.http.Get(ctx, endpoint, header)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Debug("Failed to close response body", logger.Error(cerr))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func (c *HTTPClient) statusError(op, ref string, status int, body []byte) error {
	return errors.New(&UpstreamError{Op: op, Ref: ref, StatusCode: status, Body: truncateBody(body)}).
		Component("places").
		Category(errors.CategoryHTTP).
		Context("operation", op).
		Context("ref", ref).
		Context("status_code", status).
		Build()
}

// transportError reports a failed exchange. A cancelled run is not an
// upstream failure and is returned as a cancellation.
func (c *HTTPClient) transportError(ctx context.Context, op, ref string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.New(ctxErr).
			Component("places").
			Category(errors.CategoryCancellation).
			Context("operation", op).
			Build()
	}
	return errors.New(&UpstreamError{Op: op, Ref: ref, Err: err}).
		Component("places").
		Category(errors.CategoryNetwork).
		Context("operation", op).
		Context("ref", ref).
		Build()
}

func (c *HTTPClient) decodeError(op, ref string, err error) error {
	return errors.New(&UpstreamError{Op: op, Ref: ref, Err: fmt.Errorf("decode response: %w", err)}).
		Component("places").
		Category(errors.CategoryFileParsing).
		Context("operation", op).
		Context("ref", ref).
		Build()
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
