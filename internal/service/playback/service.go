package playback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/otis-tran/demo-service/internal/domain"
)

// State is the playback state.
type State string

// Playback states
const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StatePlaying  State = "playing"
	StatePaused   State = "paused"
)

// Command drives the playback state machine.
type Command string

// Playback commands. CommandDefault is sent when no command is given.
const (
	CommandDefault Command = ""
	CommandPlay    Command = "PLAY"
	CommandPause   Command = "PAUSE"
	CommandStop    Command = "STOP"
	CommandDebug   Command = "DEBUG_NOTIFICATION"
)

// ParseCommand maps a command name, case-insensitively, to a Command.
// Unrecognised names map to CommandDefault.
func ParseCommand(name string) Command {
	switch c := Command(strings.ToUpper(strings.TrimSpace(name))); c {
	case CommandPlay, CommandPause, CommandStop, CommandDebug:
		return c
	default:
		return CommandDefault
	}
}

// PausePolicy decides how PAUSE is handled while stopped.
type PausePolicy string

// Pause policies
const (
	PauseIgnore PausePolicy = "ignore"
	PauseReject PausePolicy = "reject"
)

// Snapshot is the observable state of the service.
type Snapshot struct {
	State        State               `json:"state"`
	ServiceState domain.ServiceState `json:"service_state"`
	Notification *Notification       `json:"notification,omitempty"`
}

// Service is the foreground playback service.
type Service struct {
	notifier  Notifier
	resources Resources
	policy    PausePolicy
	logger    *slog.Logger

	mu            sync.Mutex
	state         State
	serviceState  domain.ServiceState
	resourcesHeld bool
	notification  *Notification
}

// NewService creates a stopped playback service.
func NewService(notifier Notifier, resources Resources, policy PausePolicy, logger *slog.Logger) *Service {
	return &Service{
		notifier:     notifier,
		resources:    resources,
		policy:       policy,
		logger:       logger.With("component", "music_playback_service"),
		state:        StateStopped,
		serviceState: domain.ServiceStopped,
	}
}

// Handle applies cmd and returns the resulting snapshot.
func (s *Service) Handle(ctx context.Context, cmd Command) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logger.With("command", cmd, "state", s.state)

	switch cmd {
	case CommandPlay:
		log.Debug("play command received")
		if err := s.play(ctx, TextPlaying); err != nil {
			return s.snapshot(), err
		}

	case CommandPause:
		log.Debug("pause command received")
		switch s.state {
		case StatePlaying, StatePaused:
			s.state = StatePaused
			s.show(ctx, TextPaused)
		default:
			if s.policy == PauseReject {
				return s.snapshot(), fmt.Errorf("%w: %s while %s", domain.ErrInvalidTransition, cmd, s.state)
			}
			log.Debug("ignoring pause while stopped")
		}

	case CommandStop:
		log.Debug("stop command received")
		s.stop(ctx)

	case CommandDebug:
		log.Debug("debug notification status requested")
		s.logStatus()
		if s.state != StateStopped {
			s.show(ctx, TextDebug)
		}

	default:
		log.Debug("default action, starting playback")
		if err := s.play(ctx, TextReady); err != nil {
			return s.snapshot(), err
		}
	}

	return s.snapshot(), nil
}

// play enters the foreground on the first call and refreshes the surface on
// every call.
func (s *Service) play(ctx context.Context, text string) error {
	if s.state == StateStopped {
		s.state = StateStarting
		s.serviceState = domain.ServiceCreated
		s.logger.Info("service created")

		if !s.resourcesHeld {
			if err := s.resources.Acquire(ctx); err != nil {
				s.state = StateStopped
				s.serviceState = domain.ServiceStopped
				s.logger.Error("error starting foreground service", "error", err)
				return fmt.Errorf("failed to start foreground service: %w", err)
			}
			s.resourcesHeld = true
		}
		s.serviceState = domain.ServiceRunning
		s.logger.Info("foreground service started with notification")
	}

	s.state = StatePlaying
	s.show(ctx, text)
	return nil
}

// stop removes the surface and releases resources. Stopping a stopped
// service does nothing.
func (s *Service) stop(ctx context.Context) {
	if s.state == StateStopped {
		return
	}

	if err := s.notifier.Remove(ctx, NotificationID); err != nil {
		s.logger.Error("error removing notification", "error", err)
	}
	s.notification = nil

	if s.resourcesHeld {
		s.resources.Release()
		s.resourcesHeld = false
	}
	s.state = StateStopped
	s.serviceState = domain.ServiceStopped
	s.logger.Info("service destroyed")
}

// show publishes the notification for the current state. Notifier failures
// are logged and do not affect the state machine.
func (s *Service) show(ctx context.Context, text string) {
	n := newNotification(s.state, text)
	s.notification = &n
	if err := s.notifier.Show(ctx, n); err != nil {
		s.logger.Error("error updating notification", "error", err)
		return
	}
	s.logger.Debug("notification updated", "text", text)
}

func (s *Service) logStatus() {
	s.logger.Debug("notification status",
		"state", s.state,
		"resources_held", s.resourcesHeld,
		"notification_visible", s.notification != nil)
}

func (s *Service) snapshot() Snapshot {
	snap := Snapshot{State: s.state, ServiceState: s.serviceState}
	if s.notification != nil {
		n := *s.notification
		n.Actions = append([]Action(nil), s.notification.Actions...)
		snap.Notification = &n
	}
	return snap
}

// Snapshot returns the current state and notification.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Close stops the service if it is running.
func (s *Service) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop(ctx)
}
