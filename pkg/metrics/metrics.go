package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const service = "schoolbus-hub"

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
		[]string{"service"},
	)

	// Hub metrics
	WebSocketSessionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_sessions_total",
			Help: "Current number of live WebSocket sessions",
		},
		[]string{"service", "role"},
	)

	RoomsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hub_rooms_active",
			Help: "Current number of rooms with at least one member",
		},
		[]string{"service"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_events_published_total",
			Help: "Total number of events published to rooms",
		},
		[]string{"service", "event"},
	)

	EventsDeliveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_events_delivered_total",
			Help: "Total number of per-session deliveries enqueued",
		},
		[]string{"service", "event"},
	)

	EventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_events_dropped_total",
			Help: "Total number of outbound events dropped because a session queue was full",
		},
		[]string{"service"},
	)

	InboundEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_inbound_events_total",
			Help: "Total number of inbound client events by outcome",
		},
		[]string{"service", "event", "result"},
	)

	ScheduleTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_transitions_total",
			Help: "Total number of applied schedule status transitions",
		},
		[]string{"service", "status"},
	)

	AsyncTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_tasks_total",
			Help: "Total number of background tasks by outcome",
		},
		[]string{"service", "task", "status"},
	)

	DatabaseQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"service", "operation", "status"},
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	RabbitMQMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_messages_published_total",
			Help: "Total number of messages published to RabbitMQ",
		},
		[]string{"service", "exchange", "status"},
	)

	RabbitMQMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_messages_consumed_total",
			Help: "Total number of messages consumed from RabbitMQ",
		},
		[]string{"service", "queue", "status"},
	)
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func HTTPRequestStarted() {
	HttpRequestsInFlight.WithLabelValues(service).Inc()
}

func HTTPRequestFinished() {
	HttpRequestsInFlight.WithLabelValues(service).Dec()
}

// RecordHTTPMetrics records HTTP request metrics
func RecordHTTPMetrics(method, path string, statusCode int, duration time.Duration) {
	code := strconv.Itoa(statusCode)
	HttpRequestsTotal.WithLabelValues(service, method, path, code).Inc()
	HttpRequestDuration.WithLabelValues(service, method, path, code).Observe(duration.Seconds())
}

func SessionOpened(role string) {
	WebSocketSessionsGauge.WithLabelValues(service, role).Inc()
}

func SessionClosed(role string) {
	WebSocketSessionsGauge.WithLabelValues(service, role).Dec()
}

func SetRooms(n int) {
	RoomsGauge.WithLabelValues(service).Set(float64(n))
}

// RecordPublish records one room publish reaching delivered sessions
func RecordPublish(event string, delivered int) {
	EventsPublishedTotal.WithLabelValues(service, event).Inc()
	EventsDeliveredTotal.WithLabelValues(service, event).Add(float64(delivered))
}

func RecordDrop() {
	EventsDroppedTotal.WithLabelValues(service).Inc()
}

func RecordInbound(event, result string) {
	InboundEventsTotal.WithLabelValues(service, event, result).Inc()
}

func RecordTransition(status string) {
	ScheduleTransitionsTotal.WithLabelValues(service, status).Inc()
}

func RecordAsyncTask(task, result string) {
	AsyncTasksTotal.WithLabelValues(service, task, result).Inc()
}

// RecordDatabaseQuery records database query metrics
func RecordDatabaseQuery(operation string, err error, duration time.Duration) {
	DatabaseQueriesTotal.WithLabelValues(service, operation, status(err)).Inc()
	DatabaseQueryDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordRabbitMQPublish records RabbitMQ publish metrics
func RecordRabbitMQPublish(exchange string, err error) {
	RabbitMQMessagesPublished.WithLabelValues(service, exchange, status(err)).Inc()
}

// RecordRabbitMQConsume records RabbitMQ consume metrics
func RecordRabbitMQConsume(queue string, err error) {
	RabbitMQMessagesConsumed.WithLabelValues(service, queue, status(err)).Inc()
}
