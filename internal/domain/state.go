package domain

// ServiceState is the host-level lifecycle state of a service instance.
type ServiceState string

// Service lifecycle states. Transitions are driven by the host (start, bind,
// destroy), never by the work a service performs.
const (
	ServiceCreated ServiceState = "created"
	ServiceRunning ServiceState = "running"
	ServiceStopped ServiceState = "stopped"
)

// Valid reports whether s is one of the known lifecycle states.
func (s ServiceState) Valid() bool {
	switch s {
	case ServiceCreated, ServiceRunning, ServiceStopped:
		return true
	default:
		return false
	}
}
