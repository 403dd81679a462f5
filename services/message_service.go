package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/squadran/squadran-api/database"
	"github.com/squadran/squadran-api/model"
	"github.com/squadran/squadran-api/utils/cache"
)

// MessageService owns pairwise direct messaging. Messages are append-only;
// there are no channels or groups. Delivery is poll-based by contract; when
// Redis is available each send is also published so connected clients get a
// push instead of waiting for the next poll.
type MessageService struct {
	store database.Storage
	cache *cache.RedisCache // nil when Redis is not configured
}

// NewMessageService creates a new message service
func NewMessageService(store database.Storage, redisCache *cache.RedisCache) *MessageService {
	return &MessageService{store: store, cache: redisCache}
}

func inboxChannel(uid string) string {
	return fmt.Sprintf("messages:inbox:%s", uid)
}

// Send appends a message from sender to receiver. The participants pair is
// derived at write time so membership queries can find the message from
// either side.
func (s *MessageService) Send(ctx context.Context, sender *model.UserProfile, receiverID, text string) (*model.Message, error) {
	if sender == nil {
		return nil, accessDeniedf("authentication required")
	}
	if receiverID == "" || receiverID == sender.UID {
		return nil, validationf("a receiver other than the sender is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, validationf("message text is required")
	}

	msg := model.Message{
		ID:           "m_" + uuid.New().String(),
		SenderID:     sender.UID,
		ReceiverID:   receiverID,
		Text:         text,
		Timestamp:    model.NowMillis(),
		Read:         false,
		Participants: []string{sender.UID, receiverID},
	}
	if err := s.store.Put(ctx, database.CollectionMessages, msg.ID, msg); err != nil {
		return nil, storeErr(err)
	}

	// Push is best-effort; pollers observe the message regardless.
	if s.cache != nil {
		if err := s.cache.PublishJSON(ctx, inboxChannel(receiverID), msg); err != nil {
			log.Printf("message publish failed for %s: %v", receiverID, err)
		}
	}
	return &msg, nil
}

// Thread returns every message between two users, oldest first, regardless
// of which of them asks.
func (s *MessageService) Thread(ctx context.Context, userID, otherID string) ([]model.Message, error) {
	var msgs []model.Message
	err := s.store.List(ctx, database.CollectionMessages, &msgs,
		database.Contains("participants", userID))
	if err != nil {
		return nil, storeErr(err)
	}

	thread := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if (m.SenderID == userID && m.ReceiverID == otherID) ||
			(m.SenderID == otherID && m.ReceiverID == userID) {
			thread = append(thread, m)
		}
	}
	sort.SliceStable(thread, func(i, j int) bool {
		return thread[i].Timestamp < thread[j].Timestamp
	})
	return thread, nil
}

// Conversations returns the distinct counterpart ids across all of a user's
// messages. Order is unspecified.
func (s *MessageService) Conversations(ctx context.Context, userID string) ([]string, error) {
	var msgs []model.Message
	err := s.store.List(ctx, database.CollectionMessages, &msgs,
		database.Contains("participants", userID))
	if err != nil {
		return nil, storeErr(err)
	}

	seen := make(map[string]struct{})
	counterparts := make([]string, 0)
	for _, m := range msgs {
		other := m.SenderID
		if m.SenderID == userID {
			other = m.ReceiverID
		}
		if _, ok := seen[other]; !ok {
			seen[other] = struct{}{}
			counterparts = append(counterparts, other)
		}
	}
	return counterparts, nil
}

// Subscribe delivers incoming messages for uid on the returned channel until
// ctx is cancelled. Returns nil when no push backend is configured, in which
// case clients fall back to polling Thread.
func (s *MessageService) Subscribe(ctx context.Context, uid string) <-chan model.Message {
	if s.cache == nil {
		return nil
	}

	sub := s.cache.Subscribe(ctx, inboxChannel(uid))
	out := make(chan model.Message)

	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-ch:
				if !ok {
					return
				}
				var msg model.Message
				if err := json.Unmarshal([]byte(payload.Payload), &msg); err != nil {
					log.Printf("discarding malformed inbox payload for %s: %v", uid, err)
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
