// Package notification sends a short run summary through shoutrrr service
// URLs (Telegram, ntfy, Slack, generic webhooks, ...).
package notification

import (
	"fmt"
	"io"
	"log"
	"slices"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/locali/placesync/internal/errors"
	"github.com/locali/placesync/internal/logger"
	"github.com/locali/placesync/internal/reconcile"
)

// maxDegradedLines caps how many degraded locations are itemized.
const maxDegradedLines = 20

// Config selects destinations.
type Config struct {
	URLs    []string
	Always  bool          // notify after clean runs too
	Timeout time.Duration // per-send timeout, router default when zero
}

// Notifier delivers run summaries. A Notifier without URLs is a no-op.
type Notifier struct {
	sender *router.ServiceRouter
	always bool
	log    logger.Logger
}

// New validates the URLs and builds a sender.
func New(cfg Config, log logger.Logger) (*Notifier, error) {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	n := &Notifier{always: cfg.Always, log: log.Module("notification")}

	urls := slices.DeleteFunc(slices.Clone(cfg.URLs), func(u string) bool {
		return strings.TrimSpace(u) == ""
	})
	if len(urls) == 0 {
		return n, nil
	}

	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, errors.Newf("invalid notification URL: %s", errors.ScrubMessage(err.Error())).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Context("url_count", len(urls)).
			Build()
	}
	if cfg.Timeout > 0 {
		sender.Timeout = cfg.Timeout
	}
	sender.SetLogger(quietLogger())
	n.sender = sender
	return n, nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// Enabled reports whether any destination is configured.
func (n *Notifier) Enabled() bool { return n != nil && n.sender != nil }

// ShouldNotify reports whether a run with this result warrants a message.
func (n *Notifier) ShouldNotify(report *reconcile.Report, runErr error) bool {
	if !n.Enabled() {
		return false
	}
	if runErr != nil || n.always {
		return true
	}
	return report != nil && report.HasDegraded()
}

// NotifyRun sends the summary of a run when ShouldNotify says so. Delivery
// failures are returned but never affect the run result.
func (n *Notifier) NotifyRun(report *reconcile.Report, runErr error) error {
	if !n.ShouldNotify(report, runErr) {
		return nil
	}

	title, body := FormatRun(report, runErr)
	params := stypes.Params{}
	params.SetTitle(title)

	var failed []error
	for _, err := range n.sender.Send(body, &params) {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		err := errors.Join(failed...)
		n.log.Warn("Failed to deliver run summary",
			logger.Int("failures", len(failed)),
			logger.String("error", errors.ScrubMessage(err.Error())))
		return errors.Newf("notification delivery failed: %s", errors.ScrubMessage(err.Error())).
			Component("notification").
			Category(errors.CategoryNetwork).
			Build()
	}

	n.log.Debug("Run summary delivered", logger.String("title", title))
	return nil
}

// FormatRun renders the title and body of a run summary.
func FormatRun(report *reconcile.Report, runErr error) (title, body string) {
	var b strings.Builder

	switch {
	case runErr != nil:
		title = "placesync: run failed"
		fmt.Fprintf(&b, "Error: %s\n", errors.ScrubMessage(runErr.Error()))
	case report != nil && report.HasDegraded():
		title = fmt.Sprintf("placesync: %d location(s) degraded", len(report.Degraded))
	default:
		title = "placesync: run completed"
	}

	if report == nil {
		return title, strings.TrimRight(b.String(), "\n")
	}

	b.WriteString(report.Summary())
	b.WriteByte('\n')
	for i, d := range report.Degraded {
		if i == maxDegradedLines {
			fmt.Fprintf(&b, "... and %d more\n", len(report.Degraded)-maxDegradedLines)
			break
		}
		fmt.Fprintf(&b, "- %s (%s): %s\n", d.PlaceRef, d.Stage, d.Reason)
	}
	fmt.Fprintf(&b, "run %s, %s", report.RunID, report.Duration.Round(time.Millisecond))
	return title, b.String()
}
