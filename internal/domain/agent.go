package domain

import "time"

// Capability is a named permission an actor may hold.
type Capability string

const (
	// CapabilityPushToCityControl is required to place a signal in
	// READY_TO_SEND with CityControl as target.
	CapabilityPushToCityControl Capability = "push_to_citycontrol"
	// CapabilityCityControlCallback is required to deliver inbound StUF
	// messages; CityControl connects with a machine account holding it.
	CapabilityCityControlCallback Capability = "perform_citycontrol_callback"
	// CapabilityManageSignals allows regular status changes via the API.
	CapabilityManageSignals Capability = "manage_signals"
)

// Agent is an authenticated account: a municipal employee or a machine
// account for an external system.
type Agent struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Capabilities []Capability
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasCapability reports whether the agent holds the given capability.
func (a *Agent) HasCapability(cap Capability) bool {
	for _, c := range a.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// Actor identifies who requested a state transition. A zero Email marks the
// system itself; system-authored transitions bypass capability checks.
type Actor struct {
	Email        string
	Capabilities []Capability
}

// SystemActor is the privileged actor for automated transitions (dispatch
// worker, stuck-transaction sweep).
func SystemActor() Actor {
	return Actor{}
}

// IsSystem reports whether the actor is the system itself.
func (a Actor) IsSystem() bool {
	return a.Email == ""
}

// HasCapability reports whether the actor holds cap. The system actor holds
// every capability.
func (a Actor) HasCapability(cap Capability) bool {
	if a.IsSystem() {
		return true
	}
	for _, c := range a.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// ActorForAgent builds the workflow actor for an authenticated agent.
func ActorForAgent(agent *Agent) Actor {
	return Actor{Email: agent.Email, Capabilities: agent.Capabilities}
}
