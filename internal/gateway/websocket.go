package gateway

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskmesh/a2a-connector/internal/events"
)

var wsTracer = otel.Tracer("event-stream")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking for production
		return true
	},
}

// EventStream pushes task event deliveries to WebSocket subscribers. Each
// connection registers a subscription and drains the subscriber's delivery
// queue on an interval.
type EventStream struct {
	events       *events.Service
	pollInterval time.Duration
	tracer       trace.Tracer
}

// NewEventStream creates a WebSocket event stream handler.
func NewEventStream(eventService *events.Service, pollInterval time.Duration) *EventStream {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &EventStream{
		events:       eventService,
		pollInterval: pollInterval,
		tracer:       wsTracer,
	}
}

// streamBatchSize caps how many deliveries one poll hands to the socket.
const streamBatchSize = 10

// StreamTaskEvents handles WebSocket /api/ws/task/:taskId/stream
// @Summary Stream task events
// @Description WebSocket endpoint streaming the subscriber's pending event deliveries
// @Tags events
// @Param taskId path string true "Task ID"
// @Param subscriber_id query string true "Subscriber ID"
// @Success 101 "Switching Protocols"
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Security ApiKeyAuth
// @Router /api/ws/task/{taskId}/stream [get]
func (s *EventStream) StreamTaskEvents(c *gin.Context) {
	ctx, span := s.tracer.Start(c.Request.Context(), "event_stream.stream_task_events")
	defer span.End()

	taskID := c.Param("taskId")
	subscriberID := c.Query("subscriber_id")
	if subscriberID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing subscriber_id"})
		return
	}
	tenant, ok := tenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing tenant scope"})
		return
	}

	span.SetAttributes(
		attribute.String("task.id", taskID),
		attribute.String("subscriber.id", subscriberID),
	)

	if _, err := s.events.AddSubscription(ctx, tenant, taskID, subscriberID); err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.RecordError(err)
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("Event stream opened for task %s, subscriber %s", taskID, subscriberID)

	// Reads only serve to notice the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			log.Printf("Event stream closed for task %s, subscriber %s", taskID, subscriberID)
			return
		case <-ticker.C:
			dequeued, err := s.events.Dequeue(ctx, tenant, subscriberID, taskID, streamBatchSize)
			if err != nil {
				span.RecordError(err)
				log.Printf("Event stream dequeue failed for task %s: %v", taskID, err)
				msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "dequeue failed")
				conn.WriteMessage(websocket.CloseMessage, msg)
				return
			}
			for _, event := range dequeued {
				if err := conn.WriteJSON(event); err != nil {
					log.Printf("Event stream write error for task %s: %v", taskID, err)
					return
				}
			}
		}
	}
}
