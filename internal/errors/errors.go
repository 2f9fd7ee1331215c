// Package errors wraps failures with the component and category they came
// from, so that logs and telemetry can group them. It also re-exports the
// standard library helpers, letting callers import a single errors package.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sync/atomic"
)

// ErrorCategory groups errors for logging and telemetry.
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryValidation    ErrorCategory = "validation"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryFileParsing   ErrorCategory = "file-parsing"
	CategoryNetwork       ErrorCategory = "network"
	CategoryHTTP          ErrorCategory = "http-request"
	CategoryImageFetch    ErrorCategory = "image-fetch"
	CategoryCancellation  ErrorCategory = "cancellation"
	CategoryGeneric       ErrorCategory = "generic"
)

// ComponentUnknown is recorded when a builder was given no component.
const ComponentUnknown = "unknown"

// Per-location failures. The reconciler records them and moves on.
var (
	// ErrUpstreamUnavailable: the provider rejected the request, could not be
	// reached, or sent a body that could not be decoded.
	ErrUpstreamUnavailable = stderrors.New("upstream unavailable")

	// ErrMissingPhotoURI: the media endpoint succeeded without a photoUri.
	ErrMissingPhotoURI = stderrors.New("missing photo uri")

	// ErrDownloadFailed: the photo bytes could not be fetched or stored.
	ErrDownloadFailed = stderrors.New("download failed")
)

// EnhancedError is an error tagged with where it happened and what kind of
// failure it is. Its context is fixed once built.
type EnhancedError struct {
	Err       error
	Component string
	Category  ErrorCategory

	context  map[string]any
	reported atomic.Bool
}

func (ee *EnhancedError) Error() string { return ee.Err.Error() }
func (ee *EnhancedError) Unwrap() error { return ee.Err }

// GetContext returns a copy of the context values, or nil if there are none.
func (ee *EnhancedError) GetContext() map[string]any {
	if ee.context == nil {
		return nil
	}
	return maps.Clone(ee.context)
}

// ErrorBuilder assembles an EnhancedError:
//
//	return errors.New(err).
//	    Component("cachestore").
//	    Category(errors.CategoryFileIO).
//	    Context("path", path).
//	    Build()
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

func New(err error) *ErrorBuilder { return &ErrorBuilder{err: err} }

func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

func (eb *ErrorBuilder) Build() *EnhancedError {
	ee := &EnhancedError{
		Err:       eb.err,
		Component: eb.component,
		Category:  eb.category,
		context:   eb.context,
	}
	if ee.Component == "" {
		ee.Component = ComponentUnknown
	}
	if ee.Category == "" {
		ee.Category = CategoryGeneric
	}
	return ee
}

// Report sends err to the installed telemetry reporter, at most once per
// EnhancedError. Plain errors are reported under CategoryGeneric.
func Report(err error) {
	if err == nil || !reportingActive.Load() {
		return
	}
	var ee *EnhancedError
	if !As(err, &ee) {
		ee = New(err).Build()
	}
	if ee.reported.Swap(true) {
		return
	}
	reportToTelemetry(ee)
}

// IsCategory reports whether err wraps an EnhancedError of that category.
func IsCategory(err error, category ErrorCategory) bool {
	var ee *EnhancedError
	return As(err, &ee) && ee.Category == category
}

// IsDegraded reports whether err is one of the per-location failures.
func IsDegraded(err error) bool {
	return Is(err, ErrUpstreamUnavailable) || Is(err, ErrMissingPhotoURI) || Is(err, ErrDownloadFailed)
}

func NewStd(text string) error { return stderrors.New(text) }
func Is(err, target error) bool { return stderrors.Is(err, target) }
func As(err error, target any) bool { return stderrors.As(err, target) }
func Join(errs ...error) error { return stderrors.Join(errs...) }
