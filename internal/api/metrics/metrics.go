// Package metrics defines and registers all custom Prometheus metrics for the
// identity API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Every metric is registered with the default registry through promauto when
// the package is imported; echoprometheus serves them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// ── Authentication metrics ────────────────────────────────────────────────────

// LoginAttemptsTotal counts password logins.
// Label:
//   - result: "success", "rejected" or "inactive"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of password login attempts, by result.",
	},
	[]string{"result"},
)

// TokenValidationsTotal counts bearer token resolutions.
// Label:
//   - result: "valid", "invalid" or "inactive"
var TokenValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validations_total",
		Help:      "Total number of bearer token resolutions, by result.",
	},
	[]string{"result"},
)

// ── Account metrics ───────────────────────────────────────────────────────────

// UsersCreatedTotal counts created accounts.
// Label:
//   - path: "signup" or "admin"
var UsersCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_created_total",
		Help:      "Total number of user accounts created, by creation path.",
	},
	[]string{"path"},
)

// PasswordResetsTotal counts password reset steps.
// Labels:
//   - step: "request" or "confirm"
//   - result: "ok" or "error"
var PasswordResetsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_resets_total",
		Help:      "Total number of password reset requests and confirmations.",
	},
	[]string{"step", "result"},
)

// ── Infrastructure metrics ────────────────────────────────────────────────────

// RoleCacheLookupsTotal counts role cache decisions.
// Label:
//   - result: "hit", "miss" or "error"
var RoleCacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_cache_lookups_total",
		Help:      "Total number of role cache lookups, labelled by result.",
	},
	[]string{"result"},
)

// MailQueueDepth tracks the number of messages waiting in each mail worker channel.
var MailQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mail_queue_depth",
		Help:      "Current number of e-mails pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// MailDeliveryDuration measures SMTP delivery time.
// Label:
//   - result: "ok" or "error"
var MailDeliveryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "mail_delivery_duration_seconds",
		Help:      "Duration of a single e-mail delivery attempt.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)
