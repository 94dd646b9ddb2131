package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkflowTransitions counts successful status changes by record kind and action.
var WorkflowTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "timekeeper",
	Subsystem: "workflow",
	Name:      "transitions_total",
	Help:      "Timesheet and expense status transitions.",
}, []string{"kind", "action"})

// WorkflowConflicts counts approvals that lost a race to another approver.
var WorkflowConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "timekeeper",
	Subsystem: "workflow",
	Name:      "conflicts_total",
	Help:      "Status changes rejected because the record had already changed.",
}, []string{"kind"})

var OvertimeHours = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "timekeeper",
	Subsystem: "timesheets",
	Name:      "overtime_hours_approved_total",
	Help:      "Overtime hours on approved timesheets.",
}, []string{"rule"})

var NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "timekeeper",
	Subsystem: "notify",
	Name:      "notifications_created_total",
	Help:      "Notifications written by kind.",
}, []string{"kind"})

var SchedulerRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "timekeeper",
	Subsystem: "notify",
	Name:      "runs_total",
	Help:      "Notification scheduler passes by outcome.",
}, []string{"outcome"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "timekeeper",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route pattern and status class.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route", "status"})
