package views

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/barbershop-scheduler/internal/appointments"
	"github.com/wolfman30/barbershop-scheduler/internal/availability"
	"github.com/wolfman30/barbershop-scheduler/internal/avatars"
	"github.com/wolfman30/barbershop-scheduler/internal/backend/backendtest"
	"github.com/wolfman30/barbershop-scheduler/internal/booking"
	"github.com/wolfman30/barbershop-scheduler/internal/calendar"
	"github.com/wolfman30/barbershop-scheduler/internal/notify"
	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

var (
	// Monday 2024-05-06 10:00 UTC.
	now       = time.Date(2024, time.May, 6, 10, 0, 0, 0, time.UTC)
	monday    = scheduling.NewDate(2024, time.May, 6)
	tuesday   = scheduling.NewDate(2024, time.May, 7)
	wednesday = scheduling.NewDate(2024, time.May, 8)
	saturday  = scheduling.NewDate(2024, time.May, 11)
	carlos    = scheduling.Provider{ID: "prov-1", SessionUserID: "user-1", Name: "Carlos", AvatarRef: "carlos.png"}
)

func clock() time.Time { return now }

func newFake() *backendtest.Fake {
	fake := &backendtest.Fake{Providers: []scheduling.Provider{carlos, {ID: "prov-2", SessionUserID: "user-2", Name: "Bruno"}}}
	fake.SetAvailability("user-1", monday, []scheduling.TimeSlot{
		{Hour: 9, Available: true},
		{Hour: 10, Available: false},
		{Hour: 14, Available: true},
	})
	fake.SetAvailability("user-1", tuesday, []scheduling.TimeSlot{{Hour: 8, Available: true}})
	fake.SetAvailability("user-1", wednesday, []scheduling.TimeSlot{{Hour: 16, Available: true}})
	return fake
}

func avatarResolver() *avatars.Resolver {
	return avatars.NewResolver(avatars.Config{Bucket: "beardio-files"}, nil, logging.Discard())
}

func newProviderDetail(fake *backendtest.Fake, rec *notify.Recorder) *ProviderDetail {
	msgs := notify.Messages("pt-BR")
	resolver := availability.NewResolver(fake, logging.Discard(), availability.WithSink(rec, msgs))
	return NewProviderDetail(ProviderDetailConfig{
		Providers: fake,
		Days:      calendar.NewDaySelection(clock, time.UTC),
		Slots:     resolver,
		Booking:   booking.NewWorkflow(fake, resolver, rec, msgs, logging.Discard(), booking.WithLocation(time.UTC)),
		Avatars:   avatarResolver(),
		Messages:  msgs,
		Logger:    logging.Discard(),
	})
}

func TestDirectory_List(t *testing.T) {
	dir := NewDirectory(newFake(), avatarResolver(), logging.Discard())
	list, err := dir.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "https://beardio-files.s3.amazonaws.com/carlos.png", list[0].AvatarURL)
	assert.Equal(t, avatars.DefaultPlaceholder, list[1].AvatarURL)

	empty, err := NewDirectory(&backendtest.Fake{}, nil, nil).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestProviderDetail_OpenAndBook(t *testing.T) {
	fake := newFake()
	rec := notify.NewRecorder(0)
	v := newProviderDetail(fake, rec)
	ctx := context.Background()

	require.NoError(t, v.Open(ctx, "prov-1"))
	snap := v.Snapshot(ctx)
	require.NotNil(t, snap.Provider)
	assert.Equal(t, "Carlos", snap.Provider.Name)
	assert.Equal(t, "Dia 06 de maio", snap.Day.Label)
	assert.Equal(t, "segunda-feira", snap.Day.Weekday)
	assert.True(t, snap.Day.IsToday)
	assert.Equal(t, "Hoje", snap.Day.TodayLabel)
	require.Len(t, snap.Morning, 2)
	require.Len(t, snap.Afternoon, 1)
	assert.Equal(t, "09:00", snap.Morning[0].Label)

	// availability is keyed by the provider's session user id
	assert.Equal(t, []any{"user-1", monday}, fake.Calls()[1].Args)

	assert.False(t, v.SelectSlot(10))
	require.True(t, v.SelectSlot(9))
	snap = v.Snapshot(ctx)
	require.NotNil(t, snap.Selected)
	assert.Equal(t, "06/05/2024 às 9 Horas", snap.Selected.Summary)

	appt, err := v.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.May, 6, 9, 0, 0, 0, time.UTC), appt.Date)
	snap = v.Snapshot(ctx)
	assert.Nil(t, snap.Selected)
	assert.Equal(t, booking.StateConfirmed, snap.Booking)
}

func TestProviderDetail_OpenUnknown(t *testing.T) {
	v := newProviderDetail(newFake(), notify.NewRecorder(0))
	require.Error(t, v.Open(context.Background(), "missing"))
	_, err := v.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestProviderDetail_WeekendIgnored(t *testing.T) {
	fake := newFake()
	v := newProviderDetail(fake, notify.NewRecorder(0))
	require.NoError(t, v.Open(context.Background(), "prov-1"))

	ok, err := v.SelectDate(context.Background(), saturday)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, monday, v.Snapshot(context.Background()).Day.Date)
	assert.Equal(t, 1, fake.CallCount("DayAvailability"))
}

func TestProviderDetail_DateChangeRace(t *testing.T) {
	fake := newFake()
	v := newProviderDetail(fake, notify.NewRecorder(0))
	ctx := context.Background()
	require.NoError(t, v.Open(ctx, "prov-1"))
	require.True(t, v.SelectSlot(9))

	release := fake.Hold("DayAvailability")
	done := make(chan error, 1)
	go func() {
		_, err := v.SelectDate(ctx, tuesday)
		done <- err
	}()
	require.Eventually(t, func() bool { return fake.CallCount("DayAvailability") == 2 }, time.Second, 5*time.Millisecond)

	ok, err := v.SelectDate(ctx, wednesday)
	require.NoError(t, err)
	require.True(t, ok)
	release()
	require.NoError(t, <-done, "a superseded refresh is not an error")

	snap := v.Snapshot(ctx)
	assert.Equal(t, wednesday, snap.Day.Date)
	assert.Empty(t, snap.Morning)
	require.Len(t, snap.Afternoon, 1)
	assert.Equal(t, 16, snap.Afternoon[0].Hour)
	assert.Nil(t, snap.Selected, "date change clears the selection")
}

func TestProviderDetail_FollowsDayPicker(t *testing.T) {
	fake := newFake()
	v := newProviderDetail(fake, notify.NewRecorder(0))
	ctx := context.Background()
	require.NoError(t, v.Open(ctx, "prov-1"))

	ok, err := v.days.SelectDate(ctx, tuesday)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, tuesday, v.booking.Status().Date)
	snap := v.Snapshot(ctx)
	require.Len(t, snap.Morning, 1)
	assert.Equal(t, 8, snap.Morning[0].Hour)
}

func TestProviderDetail_LateChangeSettlesOnPickerDay(t *testing.T) {
	fake := newFake()
	v := newProviderDetail(fake, notify.NewRecorder(0))
	ctx := context.Background()
	require.NoError(t, v.Open(ctx, "prov-1"))
	_, err := v.SelectDate(ctx, wednesday)
	require.NoError(t, err)

	// a listener call carrying an older day must not move the workflow off
	// the picker's selection
	require.NoError(t, v.dayChanged(ctx, tuesday))
	assert.Equal(t, wednesday, v.booking.Status().Date)
	assert.Equal(t, wednesday, v.slots.Snapshot().Key.Date)
}

func TestProviderDetail_AvailabilityFailureNotifies(t *testing.T) {
	fake := newFake()
	fake.FailWith("DayAvailability", backendtest.ErrUnavailable)
	rec := notify.NewRecorder(0)
	v := newProviderDetail(fake, rec)

	require.Error(t, v.Open(context.Background(), "prov-1"))
	snap := v.Snapshot(context.Background())
	assert.Empty(t, snap.Morning)
	assert.Empty(t, snap.Afternoon)
	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, notify.KindError, last.Kind)
}

func newSchedule(fake *backendtest.Fake, rec *notify.Recorder) *Schedule {
	msgs := notify.Messages("pt-BR")
	coll := appointments.NewCollection(fake, logging.Discard(), appointments.WithLocation(time.UTC))
	return NewSchedule(ScheduleConfig{
		Days:       calendar.NewDaySelection(clock, time.UTC),
		Collection: coll,
		Lifecycle:  appointments.NewController(coll, fake, rec, msgs, nil, logging.Discard()),
		Avatars:    avatarResolver(),
		Messages:   msgs,
		Logger:     logging.Discard(),
	})
}

func TestSchedule_ReloadsOnPickerChange(t *testing.T) {
	fake := scheduleFake()
	v := newSchedule(fake, notify.NewRecorder(0))
	ctx := context.Background()
	require.NoError(t, v.EnsureLoaded(ctx))

	ok, err := v.days.SelectDate(ctx, tuesday)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tuesday, v.coll.Date())
	assert.Equal(t, 2, fake.CallCount("OwnSchedule"))
}

func scheduleFake() *backendtest.Fake {
	fake := &backendtest.Fake{}
	fake.SetSchedule(monday, []scheduling.Appointment{
		{ID: "a1", Date: time.Date(2024, time.May, 6, 9, 0, 0, 0, time.UTC), Status: scheduling.StatusPending, Counterpart: scheduling.Person{Name: "Ana"}},
		{ID: "a2", Date: time.Date(2024, time.May, 6, 15, 0, 0, 0, time.UTC), Status: scheduling.StatusPending, Counterpart: scheduling.Person{Name: "Bia", AvatarRef: "bia.png"}},
		{ID: "a3", Date: time.Date(2024, time.May, 6, 11, 0, 0, 0, time.UTC), Status: scheduling.StatusPending, Counterpart: scheduling.Person{Name: "Caio"}},
	})
	fake.SetSchedule(tuesday, []scheduling.Appointment{
		{ID: "t1", Date: time.Date(2024, time.May, 7, 9, 0, 0, 0, time.UTC), Status: scheduling.StatusPending},
	})
	return fake
}

func TestSchedule_SnapshotToday(t *testing.T) {
	v := newSchedule(scheduleFake(), notify.NewRecorder(0))
	ctx := context.Background()
	require.NoError(t, v.EnsureLoaded(ctx))

	snap := v.Snapshot(ctx)
	require.Len(t, snap.Morning, 2)
	assert.Equal(t, "a1", snap.Morning[0].ID)
	assert.Equal(t, "a3", snap.Morning[1].ID)
	require.Len(t, snap.Afternoon, 1)
	assert.Equal(t, "https://beardio-files.s3.amazonaws.com/bia.png", snap.Afternoon[0].Client.AvatarURL)

	// sequence order first: a2 (15:00) precedes a3 (11:00) in the response
	require.NotNil(t, snap.Next)
	assert.Equal(t, "a2", snap.Next.ID)
	assert.Equal(t, "Manhã", snap.MorningLabel)
}

func TestSchedule_NoNextOnOtherDays(t *testing.T) {
	fake := scheduleFake()
	v := newSchedule(fake, notify.NewRecorder(0))
	ctx := context.Background()

	ok, err := v.SelectDate(ctx, tuesday)
	require.NoError(t, err)
	require.True(t, ok)

	snap := v.Snapshot(ctx)
	assert.False(t, snap.Day.IsToday)
	assert.Nil(t, snap.Next)
	require.Len(t, snap.Morning, 1)
	assert.Equal(t, "t1", snap.Morning[0].ID)
}

func TestSchedule_CompleteAndCancelRollback(t *testing.T) {
	fake := scheduleFake()
	rec := notify.NewRecorder(0)
	v := newSchedule(fake, rec)
	ctx := context.Background()
	require.NoError(t, v.EnsureLoaded(ctx))

	require.NoError(t, v.Complete(ctx, "a1"))
	assert.Equal(t, scheduling.StatusCompleted, v.Snapshot(ctx).Morning[0].Status)

	fake.FailWith("CancelAppointment", backendtest.ErrUnavailable)
	require.Error(t, v.Cancel(ctx, "a2"))
	snap := v.Snapshot(ctx)
	require.Len(t, snap.Afternoon, 1)
	assert.Equal(t, "a2", snap.Afternoon[0].ID)

	v.Reset()
	assert.Empty(t, v.Snapshot(ctx).Morning)
}
