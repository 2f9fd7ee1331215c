package proxy

import (
	"net/http"
	"strings"

	"github.com/antonholmquist/jason"
	"github.com/labstack/echo/v4"

	"github.com/locali/placesync/internal/errors"
	"github.com/locali/placesync/internal/logger"
	"github.com/locali/placesync/internal/places"
)

const (
	pathPlaceDetails  = "/api/place-details"
	pathPlacePhotoURI = "/api/place-photo-uri"

	// photoUri values expire quickly upstream, details do not.
	cacheControlDetails = "public, max-age=300"
	cacheControlPhoto   = "public, max-age=60"
)

// Response messages, kept stable for the front end.
const (
	msgMissingKey      = "Missing PLACES_API_KEY env var"
	msgMissingPlaceID  = "Missing placeId"
	msgMissingName     = "Missing name"
	msgInvalidName     = "Invalid name"
	msgDetailsError    = "Places API error"
	msgPhotoError      = "Places Photo error"
	msgMissingPhotoURI = "Missing photoUri from Places API"
	msgServerError     = "Server error"
)

func errorBody(msg string) echo.Map { return echo.Map{"error": msg} }

// preflight applies the checks shared by both endpoints. It returns false
// after writing a response.
func (s *Server) preflight(c echo.Context) (bool, error) {
	if c.Request().Method != http.MethodGet {
		return false, c.String(http.StatusMethodNotAllowed, "Method Not Allowed")
	}
	if s.backend == nil {
		return false, c.JSON(http.StatusInternalServerError, errorBody(msgMissingKey))
	}
	return true, nil
}

func queryOr(c echo.Context, name, def string) string {
	if v := strings.TrimSpace(c.QueryParam(name)); v != "" {
		return v
	}
	return def
}

func (s *Server) handlePlaceDetails(c echo.Context) error {
	if ok, err := s.preflight(c); !ok {
		return err
	}

	placeID := strings.TrimSpace(c.QueryParam("placeId"))
	if placeID == "" {
		return c.JSON(http.StatusBadRequest, errorBody(msgMissingPlaceID))
	}
	language := queryOr(c, "languageCode", s.cfg.Language)
	region := queryOr(c, "regionCode", s.cfg.Region)

	raw, err := s.backend.PlaceDetails(c.Request().Context(), placeID, language, region)
	if err != nil {
		return s.serverError(c, "place details", err)
	}
	if !raw.OK() {
		return upstreamError(c, msgDetailsError, raw)
	}

	c.Response().Header().Set("Cache-Control", cacheControlDetails)
	return c.JSON(http.StatusOK, places.NarrowDetails(raw.Body))
}

func (s *Server) handlePlacePhotoURI(c echo.Context) error {
	if ok, err := s.preflight(c); !ok {
		return err
	}

	name := strings.TrimSpace(c.QueryParam("name"))
	if name == "" {
		return c.JSON(http.StatusBadRequest, errorBody(msgMissingName))
	}
	if !places.ValidPhotoName(name) {
		return c.JSON(http.StatusBadRequest, errorBody(msgInvalidName))
	}
	maxWidth := places.ParseMaxWidth(c.QueryParam("maxWidthPx"), s.cfg.MaxWidthPx)

	raw, err := s.backend.PhotoMedia(c.Request().Context(), name, maxWidth)
	if err != nil {
		return s.serverError(c, "photo media", err)
	}
	if !raw.OK() {
		return upstreamError(c, msgPhotoError, raw)
	}

	var photoURI string
	if obj, err := jason.NewObjectFromBytes(raw.Body); err == nil {
		photoURI, _ = obj.GetString("photoUri")
	}
	if photoURI == "" {
		return c.JSON(http.StatusBadGateway, errorBody(msgMissingPhotoURI))
	}

	c.Response().Header().Set("Cache-Control", cacheControlPhoto)
	return c.JSON(http.StatusOK, echo.Map{"photoUri": photoURI})
}

// upstreamError mirrors a rejected upstream status to the caller.
func upstreamError(c echo.Context, msg string, raw places.RawResponse) error {
	return c.JSON(raw.StatusCode, echo.Map{
		"error":   msg,
		"status":  raw.StatusCode,
		"details": raw.Details(),
	})
}

func (s *Server) serverError(c echo.Context, op string, err error) error {
	msg := errors.ScrubMessage(err.Error())
	s.log.Warn("Upstream request failed",
		logger.String("operation", op),
		logger.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		logger.String("error", msg))
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error":   msgServerError,
		"message": msg,
	})
}
