package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var MessagesInspected = promauto.NewCounter(prometheus.CounterOpts{
	Name: "antispam_messages_inspected_total",
	Help: "Number of messages that passed the intake filter",
})

var ActionsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "antispam_actions_issued_total",
	Help: "Moderation actions issued, by detector and action kind",
}, []string{"detector", "kind"})

var DetectorErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "antispam_detector_errors_total",
	Help: "Detector passes that ended with an error",
}, []string{"detector"})

var AlreadyDeleted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "antispam_already_deleted_total",
	Help: "Delete or ban targets that vanished before the action ran",
})

var InviteResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "antispam_invite_resolutions_total",
	Help: "Invite resolutions by outcome",
}, []string{"outcome"})

var InviteResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "antispam_invite_resolve_duration_sec",
	Help:    "Latency of invite resolution calls",
	Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
})

var CooldownRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "antispam_cooldown_records",
	Help: "Cooldown records held in memory, by detector kind",
}, []string{"kind"})

var SideTaskFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "antispam_side_task_failures_total",
	Help: "Supervised low-priority tasks that failed",
}, []string{"task"})

var RESTLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "discord_rest_duration_sec",
	Help:    "Latency of Discord REST round trips",
	Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
})

var SettingsCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "antispam_settings_cache_lookups_total",
	Help: "Settings cache lookups by layer and result",
}, []string{"layer", "result"})

var SettingsLoadFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "antispam_settings_load_failures_total",
	Help: "Messages dropped because guild settings could not be loaded",
})
