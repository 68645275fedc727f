package service

import "loa-bot/internal/models"

// IntentKind names a side effect the platform side has to perform.
type IntentKind int

const (
	IntentGrantMarker IntentKind = iota + 1
	IntentRevokeMarker
	IntentNotifyStarted
	IntentNotifyEnded
	IntentNotifyExpired
)

func (k IntentKind) String() string {
	switch k {
	case IntentGrantMarker:
		return "grant_marker"
	case IntentRevokeMarker:
		return "revoke_marker"
	case IntentNotifyStarted:
		return "notify_started"
	case IntentNotifyEnded:
		return "notify_ended"
	case IntentNotifyExpired:
		return "notify_expired"
	default:
		return "unknown"
	}
}

type Intent struct {
	Kind      IntentKind
	SubjectID string
	// Leave is the record the intent refers to, nil when none existed.
	Leave *models.Leave
}

type StartResult struct {
	Leave models.Leave
	// Replaced is set when an earlier leave of the subject was superseded.
	Replaced bool
	Intents  []Intent
}

type EndResult struct {
	SubjectID string
	Existed   bool
	Previous  *models.Leave
	Intents   []Intent
}

type ClosedLeave struct {
	Leave   models.Leave
	Intents []Intent
}
