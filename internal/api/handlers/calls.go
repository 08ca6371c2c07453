package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/troikatech/taxi-voicebot/internal/dispatch"
	"github.com/troikatech/taxi-voicebot/pkg/errors"
	"github.com/troikatech/taxi-voicebot/pkg/utils"
)

type ActiveCallResponse struct {
	CallID  string `json:"call_id"`
	Caller  string `json:"caller"`
	Running bool   `json:"running"`
	Pickup  bool   `json:"pickup_set"`
	Dest    bool   `json:"destination_set"`
	Pax     bool   `json:"passengers_set"`
	Time    bool   `json:"pickup_time_set"`
}

// ListActiveCalls reports the sessions currently in the registry. Caller
// numbers are masked; this endpoint is for operators, not for PII export.
func (h *Handler) ListActiveCalls(c *gin.Context) {
	sessions := h.registry.Active()

	calls := make([]ActiveCallResponse, 0, len(sessions))
	for _, s := range sessions {
		b := s.Booking()
		calls = append(calls, ActiveCallResponse{
			CallID:  s.CallID(),
			Caller:  utils.MaskPhoneNumber(s.CallerID()),
			Running: s.Running(),
			Pickup:  b.Pickup != nil,
			Dest:    b.Destination != nil,
			Pax:     b.Passengers != nil,
			Time:    b.PickupTime != nil,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(calls),
		"calls": calls,
	})
}

type StopCallRequest struct {
	Reason string `json:"reason"`
}

// StopCall requests a cooperative stop of a live session. The session
// finishes its current step and then hangs up.
func (h *Handler) StopCall(c *gin.Context) {
	callID := c.Param("call_id")

	var req StopCallRequest
	c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "operator_request"
	}

	if !h.registry.Stop(callID, req.Reason) {
		errors.NotFound(c, "no active call with that id")
		return
	}

	h.logger.Info("operator stopped call",
		zap.String("call_id", callID),
		zap.String("reason", req.Reason),
	)
	c.JSON(http.StatusAccepted, gin.H{
		"call_id": callID,
		"status":  "stopping",
	})
}

// ListBookings returns the most recent confirmed bookings.
func (h *Handler) ListBookings(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			errors.BadRequest(c, "limit must be an integer between 1 and 100")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := h.mongoClient.Collection(dispatch.BookingsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		errors.InternalError(c, err, h.logger)
		return
	}
	defer cursor.Close(ctx)

	bookings := []dispatch.BookingRecord{}
	if err := cursor.All(ctx, &bookings); err != nil {
		errors.InternalError(c, err, h.logger)
		return
	}

	for i := range bookings {
		bookings[i].CallerPhone = utils.MaskPhoneNumber(bookings[i].CallerPhone)
	}

	c.JSON(http.StatusOK, gin.H{
		"count":    len(bookings),
		"bookings": bookings,
	})
}
