package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector owns the service's Prometheus metrics. Each collector has
// its own registry so several can coexist in one test binary.
type MetricsCollector struct {
	serviceName string
	registry    *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	channelsConnected prometheus.Gauge
	inboundEvents     *prometheus.CounterVec
	outboundEvents    *prometheus.CounterVec
	droppedChannels   prometheus.Counter

	reminderScans      prometheus.Counter
	remindersDelivered *prometheus.CounterVec
	deliveryFailures   *prometheus.CounterVec

	notificationsCreated *prometheus.CounterVec
	systemErrors         *prometheus.CounterVec
}

// NewMetricsCollector creates and registers all metrics
func NewMetricsCollector(serviceName string) *MetricsCollector {
	constLabels := prometheus.Labels{"service": serviceName}

	m := &MetricsCollector{
		serviceName: serviceName,
		registry:    prometheus.NewRegistry(),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: constLabels,
			},
			[]string{"method", "endpoint", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "Duration of HTTP requests in seconds",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: constLabels,
			},
			[]string{"method", "endpoint"},
		),
		channelsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "realtime_channels_connected",
			Help:        "Number of websocket channels registered with the hub",
			ConstLabels: constLabels,
		}),
		inboundEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "realtime_inbound_events_total",
				Help:        "Inbound realtime events by name and outcome",
				ConstLabels: constLabels,
			},
			[]string{"event", "outcome"},
		),
		outboundEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "realtime_outbound_events_total",
				Help:        "Outbound realtime frames queued to channels",
				ConstLabels: constLabels,
			},
			[]string{"event"},
		),
		droppedChannels: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "realtime_dropped_channels_total",
			Help:        "Channels disconnected because their send queue was full",
			ConstLabels: constLabels,
		}),
		reminderScans: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "reminder_scans_total",
			Help:        "Completed reminder scans",
			ConstLabels: constLabels,
		}),
		remindersDelivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "reminders_total",
				Help:        "Due reminder slots by outcome",
				ConstLabels: constLabels,
			},
			[]string{"outcome"},
		),
		deliveryFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "delivery_failures_total",
				Help:        "Failed outbound deliveries by channel",
				ConstLabels: constLabels,
			},
			[]string{"channel"},
		),
		notificationsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "notifications_created_total",
				Help:        "Notification writes by category and outcome",
				ConstLabels: constLabels,
			},
			[]string{"category", "outcome"},
		),
		systemErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "system_errors_total",
				Help:        "Total number of system errors",
				ConstLabels: constLabels,
			},
			[]string{"error_type", "component"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.channelsConnected,
		m.inboundEvents,
		m.outboundEvents,
		m.droppedChannels,
		m.reminderScans,
		m.remindersDelivered,
		m.deliveryFailures,
		m.notificationsCreated,
		m.systemErrors,
	)

	return m
}

// Registry exposes the underlying registry for tests
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

// RecordHTTPRequest records HTTP request metrics
func (mc *MetricsCollector) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	mc.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	mc.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// SetChannelsConnected sets the current number of hub channels
func (mc *MetricsCollector) SetChannelsConnected(n int) {
	mc.channelsConnected.Set(float64(n))
}

// RecordInboundEvent counts an inbound event with its outcome (ok, rejected, busy)
func (mc *MetricsCollector) RecordInboundEvent(event, outcome string) {
	mc.inboundEvents.WithLabelValues(event, outcome).Inc()
}

// RecordOutboundEvent counts frames queued to channels
func (mc *MetricsCollector) RecordOutboundEvent(event string, frames int) {
	mc.outboundEvents.WithLabelValues(event).Add(float64(frames))
}

// RecordDroppedChannel counts a slow consumer disconnect
func (mc *MetricsCollector) RecordDroppedChannel() {
	mc.droppedChannels.Inc()
}

// RecordReminderScan counts one finished scan
func (mc *MetricsCollector) RecordReminderScan() {
	mc.reminderScans.Inc()
}

// RecordReminder counts a due slot outcome (delivered, skipped, failed)
func (mc *MetricsCollector) RecordReminder(outcome string) {
	mc.remindersDelivered.WithLabelValues(outcome).Inc()
}

// RecordDeliveryFailure counts a failed email or sms send
func (mc *MetricsCollector) RecordDeliveryFailure(channel string) {
	mc.deliveryFailures.WithLabelValues(channel).Inc()
}

// RecordNotification counts a notification write
func (mc *MetricsCollector) RecordNotification(category string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	mc.notificationsCreated.WithLabelValues(category, outcome).Inc()
}

// RecordSystemError records system error metrics
func (mc *MetricsCollector) RecordSystemError(errorType, component string) {
	mc.systemErrors.WithLabelValues(errorType, component).Inc()
}

// Handler returns the Prometheus scrape handler
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{Registry: mc.registry})
}
