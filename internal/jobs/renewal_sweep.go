package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/subsmanager/backend/internal/models"
	"github.com/subsmanager/backend/internal/notify"
)

const RenewalSweepJob = "renewal_sweep"

type RenewalFinder interface {
	FindSubscriptionsRenewingBetween(ctx context.Context, start, end time.Time) ([]models.Subscription, error)
}

type SweepConfig struct {
	// Location decides which calendar day "today" is.
	Location     *time.Location
	LeadDays     int
	Concurrency  int
	DashboardURL string
}

type DeliveryFailure struct {
	SubscriptionID uuid.UUID
	Recipient      string
	Plan           string
	Err            error
}

// SweepReport is the outcome of one sweep. Failures are per recipient and
// never abort the batch.
type SweepReport struct {
	Start    time.Time
	End      time.Time
	Matched  int
	Sent     int
	Failures []DeliveryFailure
}

func (r SweepReport) FailedRecipients() []string {
	return lo.Map(r.Failures, func(f DeliveryFailure, _ int) string { return f.Recipient })
}

// RenewalSweep sends one reminder per subscription renewing LeadDays from today.
type RenewalSweep struct {
	finder RenewalFinder
	sender notify.Sender
	cfg    SweepConfig
	now    func() time.Time
	logger *slog.Logger
}

func NewRenewalSweep(finder RenewalFinder, sender notify.Sender, cfg SweepConfig, logger *slog.Logger) *RenewalSweep {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RenewalSweep{
		finder: finder,
		sender: sender,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With("action", RenewalSweepJob),
	}
}

// WithClock replaces the time source.
func (s *RenewalSweep) WithClock(now func() time.Time) *RenewalSweep {
	s.now = now
	return s
}

// Window returns the inclusive bounds of the target renewal day. Renewal
// dates are stored as midnight UTC of their calendar day, so the target day
// is picked in the configured location and bounded in UTC.
func (s *RenewalSweep) Window(now time.Time) (start, end time.Time) {
	local := now.In(s.cfg.Location)
	start = time.Date(local.Year(), local.Month(), local.Day()+s.cfg.LeadDays, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}

// Job adapts the sweep to the runner. Delivery failures are in the report,
// not the error.
func (s *RenewalSweep) Job(ctx context.Context) error {
	_, err := s.Run(ctx)
	return err
}

func (s *RenewalSweep) Run(ctx context.Context) (SweepReport, error) {
	start, end := s.Window(s.now())
	report := SweepReport{Start: start, End: end}
	log := s.logger.With("window_start", start.Format(time.DateOnly))

	subs, err := s.finder.FindSubscriptionsRenewingBetween(ctx, start, end)
	if err != nil {
		return report, fmt.Errorf("query renewals: %w", err)
	}
	report.Matched = len(subs)
	if len(subs) == 0 {
		log.Info("no subscriptions due for renewal")
		return report, nil
	}

	results := make([]error, len(subs))
	p := pool.New().WithMaxGoroutines(s.cfg.Concurrency)
	for i := range subs {
		i := i
		p.Go(func() {
			var catcher panics.Catcher
			catcher.Try(func() {
				results[i] = s.deliver(ctx, subs[i])
			})
			if r := catcher.Recovered(); r != nil {
				results[i] = r.AsError()
			}
		})
	}
	p.Wait()

	for i, err := range results {
		sub := subs[i]
		if err == nil {
			report.Sent++
			log.Info("renewal reminder sent", "recipient", sub.User.Email, "subscription_id", sub.ID.String())
			continue
		}
		report.Failures = append(report.Failures, DeliveryFailure{
			SubscriptionID: sub.ID,
			Recipient:      sub.User.Email,
			Plan:           sub.Plan,
			Err:            err,
		})
		log.Error("renewal reminder failed",
			"recipient", sub.User.Email,
			"subscription_id", sub.ID.String(),
			"user_id", sub.UserID.String(),
			"error", err,
		)
	}

	if len(report.Failures) > 0 {
		log.Warn("renewal sweep finished with failures",
			"matched", report.Matched,
			"sent", report.Sent,
			"failed_recipients", report.FailedRecipients(),
		)
		return report, nil
	}
	log.Info("renewal sweep finished", "matched", report.Matched, "sent", report.Sent)
	return report, nil
}

func (s *RenewalSweep) deliver(ctx context.Context, sub models.Subscription) error {
	name := sub.User.FullName
	if name == "" {
		name = sub.User.Username
	}
	msg, err := notify.RenderReminder(sub.User.Email, notify.ReminderData{
		Name:         name,
		Plan:         sub.Plan,
		RenewalDate:  sub.RenewalDate,
		DashboardURL: s.cfg.DashboardURL,
	})
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, msg)
}
