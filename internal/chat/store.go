package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"mekaniku/internal/apperr"
)

// Store is the conversation backend. Implementations return an apperr
// NotFound for unknown conversations.
type Store interface {
	CreateConversation(ctx context.Context, conv Conversation) error
	GetConversation(ctx context.Context, chatID string) (*Conversation, error)
	IsMember(ctx context.Context, chatID, userID string) (bool, error)
	AddMember(ctx context.Context, chatID, userID string) error
	RemoveMember(ctx context.Context, chatID, userID string) error
	AppendMessage(ctx context.Context, chatID string, msg Message) error
	ListMessages(ctx context.Context, chatID string, limit int) ([]Message, error)
	SetTyping(ctx context.Context, chatID, userID string, typing bool, ttl time.Duration) error
	IsTyping(ctx context.Context, chatID, userID string) (bool, error)
	SetPresence(ctx context.Context, userID string, p Presence) error
	GetPresence(ctx context.Context, userID string) (*Presence, error)
}

// RedisStore keeps conversations in Redis:
//
//	chat:{id}               conversation JSON
//	chat:{id}:members       set of user ids
//	chat:{id}:messages      list of message JSON, oldest first
//	chat:{id}:events        pub/sub channel for new messages
//	typing:{chatId}:{user}  short-lived typing flag
//	presence:{user}         presence JSON
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func conversationKey(chatID string) string { return "chat:" + chatID }
func membersKey(chatID string) string      { return "chat:" + chatID + ":members" }
func messagesKey(chatID string) string     { return "chat:" + chatID + ":messages" }
func eventsChannel(chatID string) string   { return "chat:" + chatID + ":events" }
func typingKey(chatID, userID string) string {
	return fmt.Sprintf("typing:%s:%s", chatID, userID)
}
func presenceKey(userID string) string { return "presence:" + userID }

func (s *RedisStore) CreateConversation(ctx context.Context, conv Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	members := make([]interface{}, len(conv.Participants))
	for i, id := range conv.Participants {
		members[i] = id
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, conversationKey(conv.ID), data, 0)
		if len(members) > 0 {
			pipe.SAdd(ctx, membersKey(conv.ID), members...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store conversation %s: %w", conv.ID, err)
	}
	return nil
}

func (s *RedisStore) GetConversation(ctx context.Context, chatID string) (*Conversation, error) {
	data, err := s.client.Get(ctx, conversationKey(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.NotFound("Chat")
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", chatID, err)
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", chatID, err)
	}
	return &conv, nil
}

func (s *RedisStore) IsMember(ctx context.Context, chatID, userID string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, membersKey(chatID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) AddMember(ctx context.Context, chatID, userID string) error {
	return s.updateParticipants(ctx, chatID, func(participants []string) []string {
		for _, id := range participants {
			if id == userID {
				return participants
			}
		}
		return append(participants, userID)
	}, func(pipe redis.Pipeliner) {
		pipe.SAdd(ctx, membersKey(chatID), userID)
	})
}

func (s *RedisStore) RemoveMember(ctx context.Context, chatID, userID string) error {
	return s.updateParticipants(ctx, chatID, func(participants []string) []string {
		out := participants[:0]
		for _, id := range participants {
			if id != userID {
				out = append(out, id)
			}
		}
		return out
	}, func(pipe redis.Pipeliner) {
		pipe.SRem(ctx, membersKey(chatID), userID)
	})
}

// updateParticipants rewrites the participant list under WATCH so concurrent
// membership changes do not overwrite each other.
func (s *RedisStore) updateParticipants(ctx context.Context, chatID string, edit func([]string) []string, members func(redis.Pipeliner)) error {
	key := conversationKey(chatID)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return apperr.NotFound("Chat")
		}
		if err != nil {
			return err
		}
		var conv Conversation
		if err := json.Unmarshal(data, &conv); err != nil {
			return fmt.Errorf("decode conversation %s: %w", chatID, err)
		}
		conv.Participants = edit(conv.Participants)
		updated, err := json.Marshal(conv)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			members(pipe)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < 3; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return apperr.Conflict("Chat membership changed concurrently, try again")
}

func (s *RedisStore) AppendMessage(ctx context.Context, chatID string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, messagesKey(chatID), data)
		pipe.Publish(ctx, eventsChannel(chatID), data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append message to %s: %w", chatID, err)
	}
	return nil
}

// ListMessages returns the newest limit messages in chronological order.
func (s *RedisStore) ListMessages(ctx context.Context, chatID string, limit int) ([]Message, error) {
	raw, err := s.client.LRange(ctx, messagesKey(chatID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list messages for %s: %w", chatID, err)
	}

	messages := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *RedisStore) SetTyping(ctx context.Context, chatID, userID string, typing bool, ttl time.Duration) error {
	key := typingKey(chatID, userID)
	if !typing {
		return s.client.Del(ctx, key).Err()
	}
	return s.client.Set(ctx, key, "1", ttl).Err()
}

func (s *RedisStore) IsTyping(ctx context.Context, chatID, userID string) (bool, error) {
	n, err := s.client.Exists(ctx, typingKey(chatID, userID)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) SetPresence(ctx context.Context, userID string, p Presence) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, presenceKey(userID), data, 0).Err()
}

func (s *RedisStore) GetPresence(ctx context.Context, userID string) (*Presence, error) {
	data, err := s.client.Get(ctx, presenceKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Presence{}, nil
	}
	if err != nil {
		return nil, err
	}
	var p Presence
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
