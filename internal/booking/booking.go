package booking

import "fmt"

// Slot names used across the collection loop and extraction payloads.
const (
	SlotPickup      = "pickup"
	SlotDestination = "destination"
	SlotPassengers  = "passengers"
	SlotPickupTime  = "pickup_time"
)

// Booking holds the four slots collected during a call. A nil field means
// the slot has not been filled yet.
type Booking struct {
	Pickup      *string `json:"pickup" bson:"pickup"`
	Destination *string `json:"destination" bson:"destination"`
	Passengers  *int    `json:"passengers" bson:"passengers"`
	PickupTime  *string `json:"pickup_time" bson:"pickup_time"`
}

// Merge fills unset slots from partial. Slots that already hold a value are
// never overwritten, even when partial disagrees.
func (b *Booking) Merge(partial *Booking) {
	if partial == nil {
		return
	}
	if b.Pickup == nil && partial.Pickup != nil {
		b.Pickup = partial.Pickup
	}
	if b.Destination == nil && partial.Destination != nil {
		b.Destination = partial.Destination
	}
	if b.Passengers == nil && partial.Passengers != nil {
		b.Passengers = partial.Passengers
	}
	if b.PickupTime == nil && partial.PickupTime != nil {
		b.PickupTime = partial.PickupTime
	}
}

// Complete reports whether all four slots are filled.
func (b *Booking) Complete() bool {
	return b.Pickup != nil && b.Destination != nil && b.Passengers != nil && b.PickupTime != nil
}

// Reset clears all slots.
func (b *Booking) Reset() {
	b.Pickup = nil
	b.Destination = nil
	b.Passengers = nil
	b.PickupTime = nil
}

// IsSet reports whether the named slot holds a value. Unknown slot names
// report false.
func (b *Booking) IsSet(slot string) bool {
	switch slot {
	case SlotPickup:
		return b.Pickup != nil
	case SlotDestination:
		return b.Destination != nil
	case SlotPassengers:
		return b.Passengers != nil
	case SlotPickupTime:
		return b.PickupTime != nil
	}
	return false
}

// Snapshot returns a copy of the booking for handing to external clients.
func (b *Booking) Snapshot() Booking {
	out := Booking{}
	if b.Pickup != nil {
		v := *b.Pickup
		out.Pickup = &v
	}
	if b.Destination != nil {
		v := *b.Destination
		out.Destination = &v
	}
	if b.Passengers != nil {
		v := *b.Passengers
		out.Passengers = &v
	}
	if b.PickupTime != nil {
		v := *b.PickupTime
		out.PickupTime = &v
	}
	return out
}

// Summary builds the confirmation sentence read back to the caller. All four
// slots must be set.
func (b *Booking) Summary() string {
	unit := "passengers"
	if b.Passengers != nil && *b.Passengers == 1 {
		unit = "passenger"
	}
	return fmt.Sprintf(
		"Let me confirm your booking: a taxi from %s to %s for %d %s, picking up at %s. Is that correct?",
		deref(b.Pickup), deref(b.Destination), derefInt(b.Passengers), unit, deref(b.PickupTime),
	)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

// String helpers for building partial bookings in tests and clients.
func StringPtr(s string) *string { return &s }
func IntPtr(n int) *int          { return &n }
