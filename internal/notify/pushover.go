package notify

import (
	"fmt"

	"github.com/gregdel/pushover"
	"github.com/sirupsen/logrus"
)

const (
	PriorityNormal = 0
	PriorityHigh   = 1
)

// Notifier delivers watch alerts via Pushover.
type Notifier struct {
	app       *pushover.Pushover
	recipient *pushover.Recipient
	logger    *logrus.Logger
}

func NewNotifier(token, userKey string, logger *logrus.Logger) *Notifier {
	return &Notifier{
		app:       pushover.New(token),
		recipient: pushover.NewRecipient(userKey),
		logger:    logger,
	}
}

func (n *Notifier) send(title, message string, priority int) error {
	msg := pushover.NewMessageWithTitle(message, title)
	msg.Priority = priority

	resp, err := n.app.SendMessage(msg, n.recipient)
	if err != nil {
		return fmt.Errorf("sending pushover notification: %w", err)
	}

	n.logger.WithFields(logrus.Fields{
		"title":      title,
		"status":     resp.Status,
		"request_id": resp.ID,
	}).Debug("notification sent")

	return nil
}

// DepartureDelayed alerts that a watched train's delay has grown.
func (n *Notifier) DepartureDelayed(train, station string, delayMinutes int, expected, platform string) error {
	title := "Train Delay Alert"
	body := fmt.Sprintf("%s at %s is delayed by %d minutes.\nExpected: %s, Platform: %s",
		train, station, delayMinutes, expected, platform)
	return n.send(title, body, PriorityHigh)
}

// DepartureCancelled alerts that a watched train was cancelled.
func (n *Notifier) DepartureCancelled(train, station, reason string) error {
	title := "Train Cancellation Alert"
	body := fmt.Sprintf("%s at %s has been CANCELLED.\nReason: %s", train, station, reason)
	return n.send(title, body, PriorityHigh)
}

// WatchExpired tells the user a watched journey fell out of the
// upstream's live data and the watch was dropped.
func (n *Notifier) WatchExpired(train, station string) error {
	title := "Watch Ended"
	body := fmt.Sprintf("%s at %s is no longer in the live data; the watch was removed.", train, station)
	return n.send(title, body, PriorityNormal)
}
