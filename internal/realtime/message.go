package realtime

type SSEEvent string

const (
	SSEEventPhaseChanged        SSEEvent = "PhaseChanged"
	SSEEventNotificationCreated SSEEvent = "NotificationCreated"
	SSEEventProgressUpdated     SSEEvent = "ProgressUpdated"
	SSEEventDiagnosticUpdated   SSEEvent = "DiagnosticUpdated"
	SSEEventContentReady        SSEEvent = "ContentReady"
)

// Shared channels. Per-user events go out on the user's id as channel name.
const (
	ChannelEvent         = "event"
	ChannelNotifications = "notifications"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}
