package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transport
	ConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_connection_state",
			Help: "State of the most recently changed chat channel (0=connecting, 1=open, 2=closed)",
		},
	)

	ConnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_connect_attempts_total",
			Help: "Websocket dial attempts by result",
		},
		[]string{"result"},
	)

	Reconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_reconnects_scheduled_total",
			Help: "Reconnect attempts scheduled after an unexpected close",
		},
	)

	FramesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_frames_received_total",
			Help: "Binary frames received from the chat server",
		},
	)

	FramesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_frames_sent_total",
			Help: "Binary frames written to the chat server",
		},
	)

	SendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_send_failures_total",
			Help: "Outbound messages that were not sent, by error code",
		},
		[]string{"code"},
	)

	// Message pipeline
	FramesDecodeFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_frames_decode_failed_total",
			Help: "Inbound frames dropped because they did not decode",
		},
	)

	MessagesFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_filtered_total",
			Help: "Decoded messages by filter outcome",
		},
		[]string{"outcome"},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_view_events_dropped_total",
			Help: "View events dropped because the UI was not draining them",
		},
	)

	HistoryFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_history_fetch_duration_seconds",
			Help:    "History fetch latency by scope and outcome",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"scope", "outcome"},
	)

	HistoryDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_history_discarded_total",
			Help: "History results discarded because the view had already been closed",
		},
	)

	// REST collaborator
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_api_request_duration_seconds",
			Help:    "REST call latency",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_uploads_total",
			Help: "Attachment uploads by kind and result",
		},
		[]string{"kind", "result"},
	)

	// Sessions
	SessionStoreOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_session_store_operations_total",
			Help: "Session store operations by backend, operation and result",
		},
		[]string{"backend", "operation", "result"},
	)

	// Errors
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type", "code"},
	)
)

func SetConnectionState(state int) {
	ConnectionState.Set(float64(state))
}

func RecordConnectAttempt(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	ConnectAttempts.WithLabelValues(result).Inc()
}

func IncrementReconnects() {
	Reconnects.Inc()
}

func IncrementFramesReceived() {
	FramesReceived.Inc()
}

func IncrementFramesSent() {
	FramesSent.Inc()
}

func RecordSendFailure(code string) {
	SendFailures.WithLabelValues(code).Inc()
}

func IncrementDecodeFailures() {
	FramesDecodeFailed.Inc()
}

// RecordFilterOutcome counts a decoded message as accepted or rejected by the scope filter
func RecordFilterOutcome(accepted bool) {
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}
	MessagesFiltered.WithLabelValues(outcome).Inc()
}

func IncrementEventsDropped() {
	EventsDropped.Inc()
}

func RecordHistoryFetch(scope string, seconds float64, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	HistoryFetchDuration.WithLabelValues(scope, outcome).Observe(seconds)
}

func IncrementHistoryDiscarded() {
	HistoryDiscarded.Inc()
}

func RecordAPIRequest(method, path, status string, seconds float64) {
	APIRequestDuration.WithLabelValues(method, path, status).Observe(seconds)
}

func RecordUpload(kind string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	Uploads.WithLabelValues(kind, result).Inc()
}

func RecordSessionStoreOp(backend, operation string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	SessionStoreOps.WithLabelValues(backend, operation, result).Inc()
}

// RecordError records an error occurrence
func RecordError(errorType, errorCode string) {
	ErrorsTotal.WithLabelValues(errorType, errorCode).Inc()
}
