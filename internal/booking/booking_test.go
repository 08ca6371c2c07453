package booking

import (
	"strings"
	"testing"
)

func TestBooking_Merge(t *testing.T) {
	tests := []struct {
		name    string
		current Booking
		partial *Booking
		want    Booking
	}{
		{
			name:    "fills empty slots",
			current: Booking{},
			partial: &Booking{Pickup: StringPtr("12 Main St"), Passengers: IntPtr(2)},
			want:    Booking{Pickup: StringPtr("12 Main St"), Passengers: IntPtr(2)},
		},
		{
			name:    "never overwrites a filled slot",
			current: Booking{Pickup: StringPtr("12 Main St")},
			partial: &Booking{Pickup: StringPtr("99 Other Rd"), Destination: StringPtr("airport")},
			want:    Booking{Pickup: StringPtr("12 Main St"), Destination: StringPtr("airport")},
		},
		{
			name:    "nil partial is a no-op",
			current: Booking{Passengers: IntPtr(3)},
			partial: nil,
			want:    Booking{Passengers: IntPtr(3)},
		},
		{
			name:    "all-nil partial leaves booking unchanged",
			current: Booking{PickupTime: StringPtr("8am")},
			partial: &Booking{},
			want:    Booking{PickupTime: StringPtr("8am")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.current.Merge(tt.partial)
			assertBookingEqual(t, tt.current, tt.want)
		})
	}
}

func TestBooking_Complete(t *testing.T) {
	b := Booking{}
	if b.Complete() {
		t.Error("empty booking should not be complete")
	}

	b.Pickup = StringPtr("station")
	b.Destination = StringPtr("harbour")
	b.Passengers = IntPtr(2)
	if b.Complete() {
		t.Error("booking with three slots should not be complete")
	}

	b.PickupTime = StringPtr("now")
	if !b.Complete() {
		t.Error("booking with all four slots should be complete")
	}
}

func TestBooking_Reset(t *testing.T) {
	b := Booking{
		Pickup:      StringPtr("station"),
		Destination: StringPtr("harbour"),
		Passengers:  IntPtr(2),
		PickupTime:  StringPtr("now"),
	}
	b.Reset()
	assertBookingEqual(t, b, Booking{})
}

func TestBooking_IsSet(t *testing.T) {
	b := Booking{Pickup: StringPtr("station")}

	if !b.IsSet(SlotPickup) {
		t.Error("pickup should be set")
	}
	if b.IsSet(SlotDestination) {
		t.Error("destination should not be set")
	}
	if b.IsSet("ride_type") {
		t.Error("unknown slot name should report unset")
	}
}

func TestBooking_Snapshot(t *testing.T) {
	b := Booking{Pickup: StringPtr("station"), Passengers: IntPtr(2)}
	snap := b.Snapshot()

	*snap.Pickup = "changed"
	*snap.Passengers = 9

	if *b.Pickup != "station" || *b.Passengers != 2 {
		t.Error("mutating the snapshot must not touch the original")
	}
}

func TestBooking_Summary(t *testing.T) {
	b := Booking{
		Pickup:      StringPtr("12 Main St"),
		Destination: StringPtr("the airport"),
		Passengers:  IntPtr(3),
		PickupTime:  StringPtr("6 pm"),
	}

	got := b.Summary()
	want := "Let me confirm your booking: a taxi from 12 Main St to the airport for 3 passengers, picking up at 6 pm. Is that correct?"
	if got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestBooking_SummarySinglePassenger(t *testing.T) {
	b := Booking{
		Pickup:      StringPtr("home"),
		Destination: StringPtr("work"),
		Passengers:  IntPtr(1),
		PickupTime:  StringPtr("8 am"),
	}

	got := b.Summary()
	if !strings.Contains(got, "for 1 passenger,") {
		t.Errorf("Summary() = %q, want singular passenger", got)
	}
}

func assertBookingEqual(t *testing.T, got, want Booking) {
	t.Helper()
	eqStr := func(a, b *string) bool {
		if a == nil || b == nil {
			return a == b
		}
		return *a == *b
	}
	eqInt := func(a, b *int) bool {
		if a == nil || b == nil {
			return a == b
		}
		return *a == *b
	}
	if !eqStr(got.Pickup, want.Pickup) ||
		!eqStr(got.Destination, want.Destination) ||
		!eqInt(got.Passengers, want.Passengers) ||
		!eqStr(got.PickupTime, want.PickupTime) {
		t.Errorf("booking = %+v, want %+v", got, want)
	}
}
