package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushrelay/internal/dispatch"
)

type recordingDispatcher struct {
	user  dispatch.ID
	topic string
	req   dispatch.Request
	fail  error
}

func (r *recordingDispatcher) ToUser(_ context.Context, user dispatch.ID, req dispatch.Request) (dispatch.Result, error) {
	r.user, r.req = user, req
	return r.result(user), nil
}

func (r *recordingDispatcher) ToTopic(_ context.Context, topic string, req dispatch.Request) (dispatch.Result, error) {
	r.topic, r.req = topic, req
	return r.result(dispatch.StringID(topic)), nil
}

func (r *recordingDispatcher) result(id dispatch.ID) dispatch.Result {
	if r.fail != nil {
		terr := &dispatch.TransportError{Err: r.fail}
		return dispatch.Result{Recipient: id, Error: terr.Error(), Err: terr}
	}
	return dispatch.Result{Recipient: id, Success: true, MessageID: "m-1"}
}

func TestBookingReminder(t *testing.T) {
	t.Parallel()

	d := &recordingDispatcher{}
	require.NoError(t, BookingReminder(d, dispatch.StringID("1"))(context.Background()))

	assert.Equal(t, "1", d.user.String())
	assert.Equal(t, "Booking Reminder", d.req.Title)
	assert.Equal(t, "You have a booking tomorrow at 10:00 AM", d.req.Body)
	assert.Equal(t, "booking", d.req.Type)
	assert.Equal(t, "Reminder: You have a booking tomorrow", d.req.Extra["message"])
}

func TestDailyAnnouncement(t *testing.T) {
	t.Parallel()

	d := &recordingDispatcher{}
	require.NoError(t, DailyAnnouncement(d, "announcements")(context.Background()))

	assert.Equal(t, "announcements", d.topic)
	assert.Equal(t, "Daily Update", d.req.Title)
	assert.Equal(t, "announcement", d.req.Type)
}

func TestJobReportsTransportFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("unavailable")
	d := &recordingDispatcher{fail: cause}
	err := BookingReminder(d, dispatch.StringID("1"))(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}

func TestReminderMessageOverridesBaseText(t *testing.T) {
	t.Parallel()

	msg := dispatch.BuildMessage("user_1", dispatch.StringID("1"), BookingReminderRequest(), fixedTime())
	assert.Equal(t, "Reminder: You have a booking tomorrow", msg.Data["message"])
	assert.Equal(t, "You have a booking tomorrow at 10:00 AM", msg.Body)
}

func fixedTime() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
