package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(day, hour int) time.Time {
	return time.Date(2025, time.January, day, hour, 0, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	existingStart, existingEnd := at(10, 14), at(12, 11)

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"straddles end", at(11, 9), at(13, 9), true},
		{"touches end", at(12, 11), at(14, 11), false},
		{"touches start", at(8, 11), at(10, 14), false},
		{"inside", at(10, 20), at(11, 8), true},
		{"contains", at(9, 0), at(13, 0), true},
		{"before", at(1, 0), at(2, 0), false},
		{"identical", existingStart, existingEnd, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.start, tt.end, existingStart, existingEnd))
			assert.Equal(t, tt.want, Overlaps(existingStart, existingEnd, tt.start, tt.end), "symmetric")
		})
	}
}

func TestCanTransition(t *testing.T) {
	allowed := map[[2]BookingStatus]bool{
		{BookingPendingApproval, BookingApproved}:  true,
		{BookingPendingApproval, BookingRejected}:  true,
		{BookingPendingApproval, BookingCancelled}: true,
		{BookingApproved, BookingCheckedIn}:        true,
		{BookingApproved, BookingCancelled}:        true,
		{BookingCheckedIn, BookingCheckedOut}:      true,
	}
	all := []BookingStatus{
		BookingPendingApproval, BookingApproved, BookingRejected,
		BookingCancelled, BookingCheckedIn, BookingCheckedOut,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]BookingStatus{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, BookingRejected.IsTerminal())
	assert.True(t, BookingCancelled.IsTerminal())
	assert.True(t, BookingCheckedOut.IsTerminal())
	assert.False(t, BookingPendingApproval.IsTerminal())
	assert.False(t, BookingCheckedIn.IsTerminal())

	assert.False(t, BookingRejected.IsActive())
	assert.False(t, BookingCancelled.IsActive())
	assert.True(t, BookingCheckedOut.IsActive())
}

func TestWholeDaysAndRevenue(t *testing.T) {
	assert.Equal(t, 1, WholeDays(at(10, 14), at(12, 11)), "45h truncates to one day")
	assert.Equal(t, 2, WholeDays(at(10, 14), at(12, 14)))
	assert.Equal(t, 0, WholeDays(at(12, 14), at(10, 14)))

	bookings := []Booking{
		{Status: BookingCheckedOut, StartDateTime: at(1, 12), EndDateTime: at(4, 12)},
		{Status: BookingCheckedOut, StartDateTime: at(5, 14), EndDateTime: at(7, 11)},
		{Status: BookingCheckedIn, StartDateTime: at(8, 12), EndDateTime: at(20, 12)},
		{Status: BookingApproved, StartDateTime: at(21, 12), EndDateTime: at(25, 12)},
	}
	assert.InDelta(t, 4*150.0, Revenue(bookings, 150), 0.0001)
}

func TestOccupancyRate(t *testing.T) {
	assert.Zero(t, OccupancyRate(nil))
	condos := []Condo{{Status: CondoOccupied}, {Status: CondoAvailable}, {Status: CondoOccupied}, {Status: CondoMaintenance}}
	assert.InDelta(t, 50.0, OccupancyRate(condos), 0.0001)
}

func TestParseInstant(t *testing.T) {
	got, err := ParseInstant("2025-01-10T14:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, at(10, 12), got)
	assert.Equal(t, time.UTC, got.Location())

	got, err = ParseInstant("2025-01-10T14:00:00")
	require.NoError(t, err)
	assert.Equal(t, at(10, 14), got)

	got, err = ParseInstant("2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, at(10, 0), got)

	_, err = ParseInstant("next tuesday")
	assert.True(t, Is(err, KindValidation))
}

func TestCondoPatchApply_SkipsInvalidFields(t *testing.T) {
	c := Condo{Name: "Sea View", Location: "Cebu", MaxGuests: 4, PricePerNight: 100}
	blank := "   "
	newName := "Sea View Deluxe"
	zero := 0
	negative := -5.0

	changed := CondoPatch{Name: &newName, Location: &blank, MaxGuests: &zero, PricePerNight: &negative}.Apply(&c)

	assert.Equal(t, []string{"name"}, changed)
	assert.Equal(t, "Sea View Deluxe", c.Name)
	assert.Equal(t, "Cebu", c.Location)
	assert.Equal(t, 4, c.MaxGuests)
	assert.InDelta(t, 100.0, c.PricePerNight, 0.0001)

	free := 0.0
	changed = CondoPatch{PricePerNight: &free}.Apply(&c)
	assert.Equal(t, []string{"pricePerNight"}, changed)
	assert.Zero(t, c.PricePerNight)
}

func TestCondoStatusOwnerSettable(t *testing.T) {
	assert.True(t, CondoAvailable.OwnerSettable())
	assert.True(t, CondoMaintenance.OwnerSettable())
	assert.True(t, CondoUnavailable.OwnerSettable())
	assert.False(t, CondoOccupied.OwnerSettable())
}

func TestPrincipal(t *testing.T) {
	c := &Condo{OwnerID: 1, FrontDeskID: 2}
	owner := Principal{UserID: 1, Roles: []Role{RoleOwner}}
	desk := Principal{UserID: 2, Roles: []Role{RoleFrontDesk}}
	otherOwner := Principal{UserID: 3, Roles: []Role{RoleOwner}}
	roleless := Principal{UserID: 1}

	assert.True(t, owner.IsOwnerOf(c))
	assert.False(t, owner.IsFrontDeskOf(c))
	assert.True(t, desk.IsFrontDeskOf(c))
	assert.False(t, otherOwner.IsOwnerOf(c))
	assert.False(t, roleless.IsOwnerOf(c))
	assert.False(t, owner.IsOwnerOf(nil))
	assert.True(t, Principal{}.Anonymous())
}

func TestErrorClassification(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Conflict(CodeNotAvailable, "condo %d is booked", 7))

	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, CodeNotAvailable, CodeOf(err))
	assert.True(t, Is(err, KindConflict))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))

	cause := errors.New("disk gone")
	ie := Internal(cause, "load condo")
	assert.ErrorIs(t, ie, cause)
	assert.Contains(t, ie.Error(), "disk gone")
}
