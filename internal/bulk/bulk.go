package bulk

import (
	"context"
	"fmt"
	"time"

	"telegram-bridge/internal/config"
	"telegram-bridge/internal/ratelimit"
	"telegram-bridge/internal/telegram"

	"github.com/rs/zerolog/log"
)

// DefaultDelay selects the configured default inter-item delay for the
// operation kind.
const DefaultDelay time.Duration = -1

// Executor drives multi-target operations against one client, strictly
// sequentially: one global rate ceiling per category, deterministic
// order-preserving reports.
type Executor struct {
	client  telegram.Client
	limiter *ratelimit.Registry // nil disables admission control
	delays  config.Delays
}

// New constructs an Executor. limiter may be nil.
func New(client telegram.Client, limiter *ratelimit.Registry, delays config.Delays) *Executor {
	return &Executor{client: client, limiter: limiter, delays: delays}
}

// item is one unit of work in a batch.
type item struct {
	id string
	do func(ctx context.Context) (any, error)
}

// run processes items in order. Each item is admitted through the limiter
// (when configured), executed, and recorded; a failing item never aborts
// the batch. The inter-item delay applies after every item, the last one
// included. Cancellation stops the batch and returns the partial report
// with ctx's error.
func (e *Executor) run(ctx context.Context, operation, category string, delay time.Duration, items []item) (*Report, error) {
	report := NewReport(operation)
	var runErr error
	for _, it := range items {
		if e.limiter != nil {
			if err := e.limiter.Acquire(ctx, category); err != nil {
				runErr = err
				break
			}
		}
		if payload, err := it.do(ctx); err != nil {
			report.AddFailure(it.id, err.Error())
		} else {
			report.AddSuccess(it.id, payload)
		}
		if delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				runErr = err
				break
			}
		}
	}
	report.Finalize()
	log.Info().
		Str("operation", operation).
		Int("total", report.Total()).
		Int("failed", len(report.Failed)).
		Str("success_rate", report.SuccessRate()).
		Msg("bulk: batch finished")
	return report, runErr
}

// SendMessages broadcasts one message to every chat in chatIDs.
func (e *Executor) SendMessages(ctx context.Context, chatIDs []string, message string, delay time.Duration) (*Report, error) {
	if delay == DefaultDelay {
		delay = e.delays.Send
	}
	items := make([]item, 0, len(chatIDs))
	for _, chatID := range chatIDs {
		chatID := chatID
		items = append(items, item{id: chatID, do: func(ctx context.Context) (any, error) {
			if err := e.client.SendMessage(ctx, chatID, message); err != nil {
				return nil, err
			}
			return "Message sent successfully", nil
		}})
	}
	return e.run(ctx, "send_messages", "write", delay, items)
}

// ForwardMessages forwards every message in messageIDs to every chat in
// toChatIDs; destinations form the outer loop, so item order is
// destination-major. Item ids are "destination:messageID".
func (e *Executor) ForwardMessages(ctx context.Context, fromChatID string, messageIDs []int, toChatIDs []string, delay time.Duration) (*Report, error) {
	if delay == DefaultDelay {
		delay = e.delays.Forward
	}
	items := make([]item, 0, len(toChatIDs)*len(messageIDs))
	for _, toChatID := range toChatIDs {
		for _, messageID := range messageIDs {
			toChatID, messageID := toChatID, messageID
			items = append(items, item{
				id: fmt.Sprintf("%s:%d", toChatID, messageID),
				do: func(ctx context.Context) (any, error) {
					if err := e.client.ForwardMessage(ctx, toChatID, messageID, fromChatID); err != nil {
						return nil, err
					}
					return "Message forwarded", nil
				},
			})
		}
	}
	return e.run(ctx, "forward_messages", "write", delay, items)
}

// DeleteMessages deletes the given message ids from one chat.
func (e *Executor) DeleteMessages(ctx context.Context, chatID string, messageIDs []int, delay time.Duration) (*Report, error) {
	if delay == DefaultDelay {
		delay = e.delays.Delete
	}
	items := make([]item, 0, len(messageIDs))
	for _, messageID := range messageIDs {
		messageID := messageID
		items = append(items, item{id: fmt.Sprintf("%d", messageID), do: func(ctx context.Context) (any, error) {
			if err := e.client.DeleteMessage(ctx, chatID, messageID); err != nil {
				return nil, err
			}
			return "Message deleted", nil
		}})
	}
	return e.run(ctx, "delete_messages", "write", delay, items)
}

// InviteUsers invites every user in userIDs to one group. Membership
// changes ride the admin category and a slower default cadence.
func (e *Executor) InviteUsers(ctx context.Context, groupID string, userIDs []string, delay time.Duration) (*Report, error) {
	if delay == DefaultDelay {
		delay = e.delays.Invite
	}
	items := make([]item, 0, len(userIDs))
	for _, userID := range userIDs {
		userID := userID
		items = append(items, item{id: userID, do: func(ctx context.Context) (any, error) {
			if err := e.client.InviteToGroup(ctx, groupID, userID); err != nil {
				return nil, err
			}
			return "User invited", nil
		}})
	}
	return e.run(ctx, "invite_users", "admin", delay, items)
}

// MarkAsRead acknowledges all messages in every chat in chatIDs.
func (e *Executor) MarkAsRead(ctx context.Context, chatIDs []string, delay time.Duration) (*Report, error) {
	if delay == DefaultDelay {
		delay = e.delays.Read
	}
	items := make([]item, 0, len(chatIDs))
	for _, chatID := range chatIDs {
		chatID := chatID
		items = append(items, item{id: chatID, do: func(ctx context.Context) (any, error) {
			if err := e.client.MarkRead(ctx, chatID); err != nil {
				return nil, err
			}
			return "Marked as read", nil
		}})
	}
	return e.run(ctx, "mark_as_read", "write", delay, items)
}

// ChatInfo resolves every chat in chatIDs and records a normalized
// {id, title, username, type} summary as the success payload.
func (e *Executor) ChatInfo(ctx context.Context, chatIDs []string, delay time.Duration) (*Report, error) {
	if delay == DefaultDelay {
		delay = e.delays.Info
	}
	items := make([]item, 0, len(chatIDs))
	for _, chatID := range chatIDs {
		chatID := chatID
		items = append(items, item{id: chatID, do: func(ctx context.Context) (any, error) {
			entity, err := e.client.GetEntity(ctx, chatID)
			if err != nil {
				return nil, err
			}
			return entity.Summary(), nil
		}})
	}
	return e.run(ctx, "chat_info", "read", delay, items)
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
