package gotauth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type flow string

const (
	flowLogin    flow = "login"
	flowSignup   flow = "signup"
	flowRecovery flow = "recovery"
	flowOAuth    flow = "oauth"
)

// Metrics counts auth flow results.  A nil *Metrics records nothing.
type Metrics struct {
	Flows    *prometheus.CounterVec
	Links    *prometheus.CounterVec
	Mail     *prometheus.CounterVec
	Sessions *prometheus.CounterVec
}

// NewMetrics registers the auth counters with reg.  Pass
// prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Flows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gotauth_flows_total",
			Help: "Auth flow attempts by flow and result kind",
		}, []string{"flow", "result"}),
		Links: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gotauth_provider_links_total",
			Help: "Provider logins by provider and linking outcome",
		}, []string{"provider", "outcome"}),
		Mail: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gotauth_mail_total",
			Help: "Notification emails by kind and result",
		}, []string{"kind", "result"}),
		Sessions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gotauth_session_checks_total",
			Help: "Authentication gate decisions by source",
		}, []string{"source"}),
	}
}

func (m *Metrics) observeFlow(f flow, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = KindOf(err).String()
	}
	m.Flows.WithLabelValues(string(f), result).Inc()
}

func (m *Metrics) observeLink(p Provider, o Outcome) {
	if m == nil {
		return
	}
	m.Links.WithLabelValues(string(p), o.String()).Inc()
}

func (m *Metrics) observeMail(kind mailKind, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Mail.WithLabelValues(string(kind), result).Inc()
}

func (m *Metrics) observeGate(source string) {
	if m == nil {
		return
	}
	m.Sessions.WithLabelValues(source).Inc()
}
