// Package jobs holds the canned notifications fired by the scheduler.
package jobs

import (
	"context"
	"fmt"

	"pushrelay/internal/dispatch"
)

const (
	BookingReminderName   = "booking_reminder"
	DailyAnnouncementName = "daily_announcement"
)

// Dispatcher is the subset of *dispatch.Dispatcher the jobs need.
type Dispatcher interface {
	ToUser(ctx context.Context, user dispatch.ID, req dispatch.Request) (dispatch.Result, error)
	ToTopic(ctx context.Context, topic string, req dispatch.Request) (dispatch.Result, error)
}

// BookingReminderRequest is the reminder sent on every scheduler interval.
func BookingReminderRequest() dispatch.Request {
	return dispatch.Request{
		Title: "Booking Reminder",
		Body:  "You have a booking tomorrow at 10:00 AM",
		Type:  "booking",
		Extra: map[string]any{"message": "Reminder: You have a booking tomorrow"},
	}
}

// DailyAnnouncementRequest is the once-a-day topic broadcast.
func DailyAnnouncementRequest() dispatch.Request {
	return dispatch.Request{
		Title: "Daily Update",
		Body:  "Check out our latest updates and services",
		Type:  "announcement",
		Extra: map[string]any{"message": "Daily update from E-Baladya"},
	}
}

// BookingReminder sends the reminder to user through the single-user path.
func BookingReminder(d Dispatcher, user dispatch.ID) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		res, err := d.ToUser(ctx, user, BookingReminderRequest())
		return outcome(res, err)
	}
}

// DailyAnnouncement broadcasts to topic.
func DailyAnnouncement(d Dispatcher, topic string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		res, err := d.ToTopic(ctx, topic, DailyAnnouncementRequest())
		return outcome(res, err)
	}
}

func outcome(res dispatch.Result, err error) error {
	if err != nil {
		return err
	}
	if !res.Success {
		if res.Err != nil {
			return res.Err
		}
		return fmt.Errorf("send failed: %s", res.Error)
	}
	return nil
}
