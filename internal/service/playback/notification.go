package playback

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// NotificationID identifies the single playback notification.
const NotificationID = 100

// Notification texts
const (
	TitleMusicPlayer = "Music Player"
	TextPlaying      = "Playing music"
	TextPaused       = "Paused"
	TextReady        = "Music Player Ready"
	TextDebug        = "Debug Mode - Testing Notification"
)

// Action is a control offered on the notification.
type Action struct {
	Label   string  `json:"label"`
	Command Command `json:"command"`
}

// Notification is the persistent status surface of the playback service.
type Notification struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Ongoing   bool      `json:"ongoing"`
	State     State     `json:"state"`
	Actions   []Action  `json:"actions"`
	UpdatedAt time.Time `json:"updated_at"`
}

// newNotification builds the notification for state with the given text.
// The first action toggles playback, the second stops the service.
func newNotification(state State, text string) Notification {
	toggle := Action{Label: "Play", Command: CommandPlay}
	if state == StatePlaying {
		toggle = Action{Label: "Pause", Command: CommandPause}
	}
	return Notification{
		ID:      NotificationID,
		Title:   TitleMusicPlayer,
		Text:    text,
		Ongoing: true,
		State:   state,
		Actions: []Action{
			toggle,
			{Label: "Stop", Command: CommandStop},
		},
		UpdatedAt: time.Now().UTC(),
	}
}

// Notifier displays the persistent surface. Show replaces any notification
// with the same ID.
type Notifier interface {
	Show(ctx context.Context, n Notification) error
	Remove(ctx context.Context, id int) error
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "notification")}
}

// Show logs the notification
func (n *LogNotifier) Show(ctx context.Context, notification Notification) error {
	n.logger.Info("notification updated",
		"notification_id", notification.ID,
		"text", notification.Text,
		"state", notification.State)
	return nil
}

// Remove logs the removal
func (n *LogNotifier) Remove(ctx context.Context, id int) error {
	n.logger.Info("notification removed", "notification_id", id)
	return nil
}

// Notifiers fans a notification out to several notifiers.
type Notifiers []Notifier

// Show calls Show on every notifier and joins their errors
func (ns Notifiers) Show(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range ns {
		if err := notifier.Show(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Remove calls Remove on every notifier and joins their errors
func (ns Notifiers) Remove(ctx context.Context, id int) error {
	var errs []error
	for _, notifier := range ns {
		if err := notifier.Remove(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
