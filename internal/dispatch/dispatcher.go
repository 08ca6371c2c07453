package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/troikatech/taxi-voicebot/internal/booking"
	"github.com/troikatech/taxi-voicebot/pkg/retry"
	"github.com/troikatech/taxi-voicebot/pkg/utils"
)

const (
	CallsCollection    = "calls"
	BookingsCollection = "bookings"
)

// CallRecord tracks a single answered call from start to hangup.
type CallRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CallID    string             `bson:"call_id" json:"call_id"`
	CallerID  string             `bson:"caller_id" json:"caller_id"`
	Outcome   string             `bson:"outcome,omitempty" json:"outcome,omitempty"`
	StartedAt time.Time          `bson:"started_at" json:"started_at"`
	EndedAt   *time.Time         `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
}

// BookingRecord is a confirmed booking persisted for the dispatch fleet.
type BookingRecord struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CallID      string             `bson:"call_id" json:"call_id"`
	CallerPhone string             `bson:"caller_phone" json:"caller_phone"`
	Pickup      string             `bson:"pickup" json:"pickup"`
	Destination string             `bson:"destination" json:"destination"`
	Passengers  int                `bson:"passengers" json:"passengers"`
	PickupTime  string             `bson:"pickup_time" json:"pickup_time"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// Collection is the subset of mongo.Collection the dispatcher writes through.
type Collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// Dispatcher persists call and booking records to MongoDB and pushes
// finalized bookings onto the Redis dispatch queue.
type Dispatcher struct {
	calls    Collection
	bookings Collection
	redis    *redis.Client
	queue    string
	logger   *zap.Logger
}

func NewDispatcher(calls, bookings Collection, redisClient *redis.Client, queueName string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		calls:    calls,
		bookings: bookings,
		redis:    redisClient,
		queue:    queueName,
		logger:   logger,
	}
}

// CallStarted records the answered call. A write failure here must not
// block the conversation, so it is logged and swallowed.
func (d *Dispatcher) CallStarted(ctx context.Context, callID, callerID string) {
	record := CallRecord{
		CallID:    callID,
		CallerID:  callerID,
		StartedAt: time.Now().UTC(),
	}
	if _, err := d.calls.InsertOne(ctx, record); err != nil {
		d.logger.Error("failed to record call start",
			zap.String("call_id", callID),
			zap.Error(err),
		)
	}
}

// BookingFinalized persists the confirmed booking and enqueues it for the
// fleet. The queue push is retried; the caller decides what a failure means
// for the conversation.
func (d *Dispatcher) BookingFinalized(ctx context.Context, callID, callerID string, b booking.Booking) error {
	snapshot := b.Snapshot()
	if !snapshot.Complete() {
		return fmt.Errorf("booking for call %s is incomplete", callID)
	}

	record := BookingRecord{
		CallID:      callID,
		CallerPhone: callerID,
		Pickup:      *snapshot.Pickup,
		Destination: *snapshot.Destination,
		Passengers:  *snapshot.Passengers,
		PickupTime:  *snapshot.PickupTime,
		CreatedAt:   time.Now().UTC(),
	}

	if _, err := d.bookings.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to persist booking: %w", err)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal booking for queue: %w", err)
	}

	err = retry.Do(ctx, retry.DefaultConfig(), func() error {
		return d.redis.LPush(ctx, d.queue, payload).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue booking: %w", err)
	}

	d.logger.Info("booking dispatched",
		zap.String("call_id", callID),
		zap.String("caller", utils.MaskPhoneNumber(callerID)),
		zap.String("queue", d.queue),
	)
	return nil
}

// CallEnded stamps the call record with its outcome.
func (d *Dispatcher) CallEnded(ctx context.Context, callID, outcome string) {
	update := bson.M{"$set": bson.M{
		"outcome":  outcome,
		"ended_at": time.Now().UTC(),
	}}
	if _, err := d.calls.UpdateOne(ctx, bson.M{"call_id": callID}, update); err != nil {
		d.logger.Error("failed to record call end",
			zap.String("call_id", callID),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
	}
}
