// Package notify delivers alert messages to the user.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Notifier delivers a formatted message. It reports success and never
// returns an error: a failed delivery is logged and reported as false.
type Notifier interface {
	Name() string
	Send(ctx context.Context, message string) bool
}

// MultiNotifier sends to several channels. Delivery succeeds when every
// channel accepts the message, so a failing channel is retried next run.
type MultiNotifier struct {
	channels []Notifier
	logger   zerolog.Logger
}

// NewMultiNotifier creates a MultiNotifier over channels.
func NewMultiNotifier(logger zerolog.Logger, channels ...Notifier) *MultiNotifier {
	return &MultiNotifier{channels: channels, logger: logger}
}

func (mn *MultiNotifier) Name() string { return "multi" }

// Send delivers message to every channel, attempting all of them even after a failure.
func (mn *MultiNotifier) Send(ctx context.Context, message string) bool {
	ok := len(mn.channels) > 0
	for _, ch := range mn.channels {
		if !ch.Send(ctx, message) {
			mn.logger.Warn().Str("channel", ch.Name()).Msg("Channel failed to deliver")
			ok = false
		}
	}
	return ok
}
