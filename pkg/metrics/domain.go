package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics counts invitation and identity events.
type DomainMetrics struct {
	invitations *prometheus.CounterVec
	activations *prometheus.CounterVec
	authEvents  *prometheus.CounterVec
}

func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	invitations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invitations_created_total",
		Help:      "Invitations created, by invitation kind.",
	}, []string{"kind"})
	activations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "memberships_activated_total",
		Help:      "Membership activations by accept path and outcome.",
	}, []string{"path", "outcome"})
	authEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_events_total",
		Help:      "Identity state changes.",
	}, []string{"event"})
	reg.MustRegister(invitations, activations, authEvents)
	return &DomainMetrics{invitations: invitations, activations: activations, authEvents: authEvents}
}

func (d *DomainMetrics) InvitationCreated(kind string) {
	if d == nil || d.invitations == nil {
		return
	}
	d.invitations.WithLabelValues(label(kind)).Inc()
}

// MembershipActivated counts an accept. alreadyActive marks a lost race that was already satisfied.
func (d *DomainMetrics) MembershipActivated(path string, alreadyActive bool) {
	if d == nil || d.activations == nil {
		return
	}
	outcome := "activated"
	if alreadyActive {
		outcome = "already_active"
	}
	d.activations.WithLabelValues(label(path), outcome).Inc()
}

func (d *DomainMetrics) AuthEvent(event string) {
	if d == nil || d.authEvents == nil {
		return
	}
	d.authEvents.WithLabelValues(label(event)).Inc()
}
