// conf/validate.go

package conf

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/locali/placesync/internal/errors"
)

// maxPhotoWidthPx is the provider's upper bound for maxWidthPx.
const maxPhotoWidthPx = 4800

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the entire Settings struct. The API key is not
// checked here: the proxy may start without one, the sync command calls
// RequireAPIKey itself.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if settings.Locations == "" {
		ve.Errors = append(ve.Errors, "locations path must not be empty")
	}
	if settings.Cache == "" {
		ve.Errors = append(ve.Errors, "cache path must not be empty")
	}
	if settings.PhotosDir == "" {
		ve.Errors = append(ve.Errors, "photos directory must not be empty")
	}

	if err := validatePlacesSettings(&settings.Places); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Sync.Delay < 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("sync delay must not be negative, got %s", settings.Sync.Delay))
	}

	if len(ve.Errors) > 0 {
		return errors.New(ve).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

func validatePlacesSettings(p *PlacesSettings) error {
	if err := validateEnvURL(p.BaseURL); err != nil {
		return fmt.Errorf("places base URL %q: %w", p.BaseURL, err)
	}
	if err := validateLanguageTag(p.Language); err != nil {
		return err
	}
	if err := validateRegionCode(p.Region); err != nil {
		return err
	}
	if err := validateMaxWidth(p.MaxWidthPx); err != nil {
		return err
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("places timeout must be positive, got %s", p.Timeout)
	}
	return nil
}

// validateLanguageTag accepts BCP 47 tags such as "it" or "en-GB".
func validateLanguageTag(value string) error {
	if _, err := language.Parse(value); err != nil {
		return fmt.Errorf("invalid language code %q: %w", value, err)
	}
	return nil
}

// validateRegionCode accepts ISO 3166-1 region codes such as "IT".
func validateRegionCode(value string) error {
	if _, err := language.ParseRegion(value); err != nil {
		return fmt.Errorf("invalid region code %q: %w", value, err)
	}
	return nil
}

func validateMaxWidth(width int) error {
	if width < 1 || width > maxPhotoWidthPx {
		return fmt.Errorf("max photo width must be between 1 and %d, got %d", maxPhotoWidthPx, width)
	}
	return nil
}
