package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/meditrack/coordination/internal/gateway"
	"github.com/meditrack/coordination/pkg/geo"
	"github.com/meditrack/coordination/pkg/interfaces"
	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/monitoring"
	"github.com/meditrack/coordination/pkg/types"
	"github.com/meditrack/coordination/pkg/workerpool"
)

// Inbound outcomes recorded in metrics
const (
	outcomeOK          = "ok"
	outcomeRejected    = "rejected"
	outcomeInvalid     = "invalid"
	outcomeBusy        = "busy"
	outcomeRateLimited = "rate_limited"
	outcomeError       = "error"
)

// eventError is a failure the sender is told about
type eventError struct {
	message string
}

func (e *eventError) Error() string {
	return e.message
}

func reject(format string, args ...interface{}) error {
	return &eventError{message: fmt.Sprintf(format, args...)}
}

type handlerFunc func(ctx context.Context, c *Client, data json.RawMessage) error

// Dependencies wires the router to the stores and infrastructure it uses
type Dependencies struct {
	Hub           *Hub
	Pool          *workerpool.Pool
	Locations     interfaces.LocationStore
	Notifications interfaces.Notifications
	Directory     interfaces.Directory
	Limiter       *gateway.RateLimiter
	Tracing       *monitoring.TracingManager
	Metrics       *monitoring.MetricsCollector
	Logger        *logger.Logger
	SpeedKmh      float64
}

// Router validates inbound events and runs their handlers on the worker pool
type Router struct {
	hub           *Hub
	pool          *workerpool.Pool
	locations     interfaces.LocationStore
	notifications interfaces.Notifications
	directory     interfaces.Directory
	limiter       *gateway.RateLimiter
	tracing       *monitoring.TracingManager
	metrics       *monitoring.MetricsCollector
	logger        *logger.Logger
	speedKmh      float64
	now           func() time.Time

	handlers map[string]handlerFunc
}

// NewRouter creates a router. Tracing, Metrics and Limiter may be nil.
func NewRouter(deps Dependencies) *Router {
	r := &Router{
		hub:           deps.Hub,
		pool:          deps.Pool,
		locations:     deps.Locations,
		notifications: deps.Notifications,
		directory:     deps.Directory,
		limiter:       deps.Limiter,
		tracing:       deps.Tracing,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		speedKmh:      deps.SpeedKmh,
		now:           time.Now,
	}
	if r.tracing == nil {
		r.tracing, _ = monitoring.NewTracingManager(context.Background(), &monitoring.TracingConfig{ServiceName: "realtime"})
	}

	r.handlers = map[string]handlerFunc{
		types.EventDoctorLocationUpdate:    r.handleLocationUpdate,
		types.EventPatientEmergency:        r.handleEmergency,
		types.EventDoctorEmergencyResponse: r.handleEmergencyResponse,
		types.EventVideoCallStart:          r.handleCallStart,
		types.EventPatientTrackDoctor:      r.handleTrackDoctor,
	}
	return r
}

// Dispatch accepts one raw inbound frame from c. Decoding, rate limiting and
// queueing happen on the caller's goroutine; the handler runs on the pool.
func (r *Router) Dispatch(c *Client, raw []byte) {
	var env types.Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		r.fail(c, "unknown", outcomeInvalid, "Invalid message format")
		return
	}

	handler, ok := r.handlers[env.Event]
	if !ok {
		r.fail(c, "unknown", outcomeInvalid, "Unknown event: "+env.Event)
		return
	}

	if !r.limiter.Allow(c.claims.UserID) {
		r.fail(c, env.Event, outcomeRateLimited, "Too many events, slow down")
		return
	}

	err := r.pool.Submit(&workerpool.Task{
		Name: env.Event,
		Run: func(ctx context.Context) {
			r.run(ctx, c, env.Event, handler, env.Data)
		},
	})
	if err != nil {
		r.logger.WithEvent(env.Event).WithError(err).Warn("Inbound event not queued")
		r.fail(c, env.Event, outcomeBusy, "Server busy")
	}
}

func (r *Router) run(ctx context.Context, c *Client, event string, handler handlerFunc, data json.RawMessage) {
	ctx = context.WithValue(ctx, logger.UserIDKey, c.claims.UserID)
	ctx, span := r.tracing.StartEventSpan(ctx, event, c.claims.UserID)
	defer span.End()

	err := handler(ctx, c, data)
	if err == nil {
		r.record(event, outcomeOK)
		return
	}

	r.tracing.RecordError(span, err)

	var evErr *eventError
	if errors.As(err, &evErr) {
		r.logger.WithContext(ctx).WithField("event", event).WithError(err).Debug("Inbound event rejected")
		r.fail(c, event, outcomeRejected, evErr.message)
		return
	}

	r.logger.WithContext(ctx).WithField("event", event).WithError(err).Error("Inbound event failed")
	r.fail(c, event, outcomeError, "Server error")
}

func (r *Router) fail(c *Client, event, outcome, message string) {
	r.record(event, outcome)
	r.hub.Unicast(c, types.EventError, types.ErrorEvent{Message: message})
}

func (r *Router) record(event, outcome string) {
	if r.metrics != nil {
		r.metrics.RecordInboundEvent(event, outcome)
	}
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return reject("Missing event data")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return reject("Invalid event data")
	}
	return nil
}

func validPoint(p *types.Point) bool {
	return p != nil && geo.ValidCoordinates(p.Latitude, p.Longitude)
}

func (r *Router) handleLocationUpdate(ctx context.Context, c *Client, data json.RawMessage) error {
	if !c.claims.IsDoctor() {
		return reject("Only doctors can update location")
	}

	var req types.LocationUpdateRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if req.DoctorID == "" {
		req.DoctorID = c.claims.UserID
	}
	if req.DoctorID != c.claims.UserID {
		return reject("Doctors can only update their own location")
	}
	if req.Latitude == nil || req.Longitude == nil {
		return reject("Latitude and longitude are required")
	}
	lat, lon := *req.Latitude, *req.Longitude
	if !geo.ValidCoordinates(lat, lon) {
		return reject("Invalid coordinates")
	}

	timestamp := r.now().UTC()
	loc, err := r.locations.Upsert(ctx, req.DoctorID, lon, lat, true)
	if err != nil {
		// the update still reaches subscribers
		r.logger.WithContext(ctx).WithError(err).Error("Error updating doctor location")
		r.hub.Unicast(c, types.EventError, types.ErrorEvent{Message: "Failed to update location"})
	} else {
		timestamp = loc.Timestamp
	}

	r.hub.Publish(types.EventDoctorLocationUpdated, types.LocationUpdated{
		DoctorID:  req.DoctorID,
		Latitude:  lat,
		Longitude: lon,
		Timestamp: timestamp,
	}, RoleRoom(types.RolePatient), UserRoom(req.DoctorID))
	return nil
}

func (r *Router) handleEmergency(ctx context.Context, c *Client, data json.RawMessage) error {
	var req types.EmergencyRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if req.PatientID == "" {
		req.PatientID = c.claims.UserID
	}
	if !c.claims.IsDoctor() && req.PatientID != c.claims.UserID {
		return reject("Patients can only raise their own emergency")
	}
	if req.PatientName == "" {
		req.PatientName = c.claims.Name
	}
	if req.Location != nil && !validPoint(req.Location) {
		return reject("Invalid coordinates")
	}

	r.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"patient_id":   req.PatientID,
		"patient_name": req.PatientName,
	}).Warn("Emergency alert raised")

	doctorIDs, err := r.directory.DoctorIDs(ctx)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Error loading doctors for emergency notifications")
	}
	message := fmt.Sprintf("🚨 EMERGENCY: Patient %s has triggered an SOS!", req.PatientName)
	for _, doctorID := range doctorIDs {
		r.notifications.Notify(ctx, doctorID, message, types.CategoryEmergency)
	}

	r.hub.Publish(types.EventEmergencyAlert, types.EmergencyAlert{
		PatientID:   req.PatientID,
		PatientName: req.PatientName,
		Location:    req.Location,
		Timestamp:   r.now().UTC(),
	}, RoleRoom(types.RoleDoctor), UserRoom(req.PatientID))
	return nil
}

func (r *Router) handleEmergencyResponse(ctx context.Context, c *Client, data json.RawMessage) error {
	if !c.claims.IsDoctor() {
		return reject("Only doctors can respond to emergencies")
	}

	var req types.EmergencyResponseRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if req.PatientID == "" {
		return reject("patientId is required")
	}
	if req.DoctorName == "" {
		req.DoctorName = c.claims.Name
	}

	r.notifications.Notify(ctx, req.PatientID,
		fmt.Sprintf("Doctor %s is responding to your emergency!", req.DoctorName), types.CategoryResponse)

	r.hub.Publish(types.EventEmergencyResponse, types.EmergencyResponse{
		PatientID:  req.PatientID,
		DoctorName: req.DoctorName,
		Status:     req.Status,
		Timestamp:  r.now().UTC(),
	}, UserRoom(req.PatientID), UserRoom(c.claims.UserID))
	return nil
}

func (r *Router) handleCallStart(ctx context.Context, c *Client, data json.RawMessage) error {
	var req types.CallStartRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if req.RecipientID == "" || req.RoomID == "" {
		return reject("recipientId and roomId are required")
	}
	if req.SenderName == "" {
		req.SenderName = c.claims.Name
	}

	r.notifications.Notify(ctx, req.RecipientID,
		fmt.Sprintf("Incoming Video Call from %s", req.SenderName), types.CategoryAppointment)

	r.hub.Publish(types.EventVideoCallInvite, types.CallInvite{
		RecipientID: req.RecipientID,
		SenderName:  req.SenderName,
		RoomID:      req.RoomID,
		Timestamp:   r.now().UTC(),
	}, UserRoom(req.RecipientID))
	return nil
}

func (r *Router) handleTrackDoctor(ctx context.Context, c *Client, data json.RawMessage) error {
	var req types.TrackDoctorRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if req.PatientID == "" {
		req.PatientID = c.claims.UserID
	}
	if !c.claims.IsDoctor() && req.PatientID != c.claims.UserID {
		return reject("Patients can only track as themselves")
	}
	if req.DoctorID == "" {
		return reject("doctorId is required")
	}
	if !validPoint(req.PatientLocation) {
		return reject("A valid patientLocation is required")
	}

	loc, err := r.locations.Get(ctx, req.DoctorID)
	if err != nil {
		if types.IsNotFound(err) {
			return reject("Doctor location not available")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Error calculating ETA")
		return reject("Failed to calculate ETA")
	}

	distance := geo.DistanceKm(req.PatientLocation.Latitude, req.PatientLocation.Longitude, loc.Latitude, loc.Longitude)
	r.hub.Unicast(c, types.EventETACalculated, types.ETACalculated{
		DoctorID: req.DoctorID,
		Distance: fmt.Sprintf("%.2f", distance),
		ETA:      geo.ETAMinutes(distance, r.speedKmh),
		DoctorLocation: types.Point{
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
		},
	})
	return nil
}
