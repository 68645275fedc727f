package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loa-bot/internal/models"
	"loa-bot/internal/platform"

	"github.com/sirupsen/logrus"
)

const DefaultPlatformTimeout = 10 * time.Second

// Notifier delivers a log line somewhere staff can read it.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type Outcome struct {
	Intent Intent
	Err    error
}

type Outcomes []Outcome

// Err returns the error of the first outcome of the given kind.
func (o Outcomes) Err(kind IntentKind) error {
	for _, outcome := range o {
		if outcome.Intent.Kind == kind {
			return outcome.Err
		}
	}
	return nil
}

// EffectApplier carries out intents against the platform and the notifiers.
// Each call is bounded by timeout and failures are reported, never retried.
type EffectApplier struct {
	client    platform.Client
	notifiers []Notifier
	timeout   time.Duration
	logger    *logrus.Logger
}

func NewEffectApplier(client platform.Client, timeout time.Duration, logger *logrus.Logger, notifiers ...Notifier) *EffectApplier {
	if timeout <= 0 {
		timeout = DefaultPlatformTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &EffectApplier{
		client:    client,
		notifiers: notifiers,
		timeout:   timeout,
		logger:    logger,
	}
}

// Apply performs intents in order. actorID is the member who triggered them,
// empty for the sweeper. Every intent is attempted even if an earlier one failed.
func (a *EffectApplier) Apply(ctx context.Context, actorID string, intents []Intent) Outcomes {
	outcomes := make(Outcomes, 0, len(intents))
	for _, intent := range intents {
		err := a.apply(ctx, actorID, intent)
		if err != nil && !errors.Is(err, platform.ErrMarkerAbsent) {
			a.logger.WithFields(logrus.Fields{
				"subject_id": intent.SubjectID,
				"intent":     intent.Kind.String(),
			}).WithError(err).Warn("Failed to apply intent")
		}
		outcomes = append(outcomes, Outcome{Intent: intent, Err: err})
	}
	return outcomes
}

func (a *EffectApplier) apply(ctx context.Context, actorID string, intent Intent) error {
	switch intent.Kind {
	case IntentGrantMarker:
		return a.grant(ctx, intent.SubjectID)
	case IntentRevokeMarker:
		return a.revoke(ctx, intent.SubjectID)
	case IntentNotifyStarted, IntentNotifyEnded, IntentNotifyExpired:
		return a.notify(ctx, RenderNotification(actorID, intent))
	default:
		return fmt.Errorf("unknown intent kind %d", intent.Kind)
	}
}

func (a *EffectApplier) grant(ctx context.Context, subjectID string) error {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.client.GrantMarker(callCtx, subjectID); err != nil {
		return fmt.Errorf("%w: grant to %s: %w", ErrMarkerApplyFailure, subjectID, err)
	}
	return nil
}

// revoke reports platform.ErrMarkerAbsent when the member does not hold the
// marker, and a wrapped platform.ErrMemberNotFound when they left the guild.
func (a *EffectApplier) revoke(ctx context.Context, subjectID string) error {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	has, err := a.client.HasMarker(callCtx, subjectID)
	if err != nil {
		return fmt.Errorf("look up %s: %w", subjectID, err)
	}
	if !has {
		return platform.ErrMarkerAbsent
	}

	if err := a.client.RevokeMarker(callCtx, subjectID); err != nil {
		return fmt.Errorf("%w: revoke from %s: %w", ErrMarkerApplyFailure, subjectID, err)
	}
	return nil
}

func (a *EffectApplier) notify(ctx context.Context, text string) error {
	var errs []error
	for _, n := range a.notifiers {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		if err := n.Notify(callCtx, text); err != nil {
			errs = append(errs, err)
		}
		cancel()
	}
	return errors.Join(errs...)
}

// RenderNotification builds the log line for a notification intent.
func RenderNotification(actorID string, intent Intent) string {
	subject := platform.Mention(intent.SubjectID)
	by := ""
	if actorID != "" {
		by = " by " + platform.Mention(actorID)
	}

	switch intent.Kind {
	case IntentNotifyStarted:
		text := fmt.Sprintf("📝 **LOA STARTED**: %s put on leave%s.", subject, by)
		if intent.Leave != nil {
			text += fmt.Sprintf("\n**Ends:** %s\n**Reason:** %s",
				intent.Leave.EndDate.Format(models.LeaveTimeLayout), intent.Leave.Reason)
		}
		return text
	case IntentNotifyEnded:
		return fmt.Sprintf("🛑 **LOA ENDED MANUALLY**: %s removed%s.", subject, by)
	case IntentNotifyExpired:
		return fmt.Sprintf("⏰ **LOA EXPIRED**: %s's leave has ended automatically.", subject)
	default:
		return ""
	}
}
