package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/swarmdeck/core/internal/apierr"
	"github.com/swarmdeck/core/internal/notify"
)

const (
	minTTLSeconds     = 1
	maxTTLSeconds     = 86400
	defaultTTLSeconds = 3600
)

// ClampTTL bounds a requested TTL to [1s, 24h], substituting the default
// when ttlSeconds <= 0.
func ClampTTL(ttlSeconds int) int {
	if ttlSeconds <= 0 {
		return defaultTTLSeconds
	}
	if ttlSeconds < minTTLSeconds {
		return minTTLSeconds
	}
	if ttlSeconds > maxTTLSeconds {
		return maxTTLSeconds
	}
	return ttlSeconds
}

// ClampPriority bounds a requested priority to [0, 10].
func ClampPriority(p int) int {
	if p < 0 {
		return 0
	}
	if p > 10 {
		return 10
	}
	return p
}

// PublishMessage inserts a new AgentMessage and emits its commit-coupled
// notification on the message's topic channel (and global).
func (s *Store) PublishMessage(ctx context.Context, fromAgent string, toAgent *string, topic MessageTopic, payload map[string]any, priority, ttlSeconds int) (*AgentMessage, error) {
	priority = ClampPriority(priority)
	ttlSeconds = ClampTTL(ttlSeconds)

	var msg *AgentMessage
	err := s.withTx(ctx, func(ctx context.Context, tx pgx.Tx) ([]notify.Notification, error) {
		id, createdAt, expiresAt, err := insertAgentMessageTx(ctx, tx, fromAgent, toAgent, topic, payload, ttlSeconds)
		if err != nil {
			return nil, err
		}
		priorityRow := tx.QueryRow(ctx, `UPDATE agent_messages SET priority = $2 WHERE id = $1 RETURNING priority`, id, priority)
		var storedPriority int
		if err := priorityRow.Scan(&storedPriority); err != nil {
			return nil, fmt.Errorf("failed to set message priority: %w", err)
		}

		msg = &AgentMessage{
			ID: id, FromAgent: fromAgent, ToAgent: toAgent, Topic: topic,
			Payload: payload, Priority: storedPriority, ReadBy: []string{},
			CreatedAt: createdAt, ExpiresAt: expiresAt,
		}

		channels := []string{notify.ChannelGlobal, notify.TopicChannel(string(topic))}
		if toAgent != nil {
			channels = append(channels, notify.AgentChannel(*toAgent))
		}
		return []notify.Notification{{
			Channels: channels,
			Event:    "message.published",
			Data: map[string]any{
				"id": id, "from_agent": fromAgent, "to_agent": toAgent,
				"topic": string(topic), "payload": payload, "priority": storedPriority,
			},
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// insertAgentMessageTx inserts a message row within an existing
// transaction, for callers (like subtask completion) that need to emit a
// message as part of a larger atomic write.
func insertAgentMessageTx(ctx context.Context, tx pgx.Tx, fromAgent string, toAgent *string, topic MessageTopic, payload map[string]any, ttlSeconds int) (id string, createdAt, expiresAt time.Time, err error) {
	payloadJSON, merr := json.Marshal(payload)
	if merr != nil {
		return "", time.Time{}, time.Time{}, fmt.Errorf("failed to marshal payload: %w", merr)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO agent_messages (from_agent, to_agent, topic, payload, expires_at)
		VALUES ($1, $2, $3, $4, now() + ($5 || ' seconds')::interval)
		RETURNING id, created_at, expires_at
	`, fromAgent, toAgent, string(topic), payloadJSON, ttlSeconds)

	if err := row.Scan(&id, &createdAt, &expiresAt); err != nil {
		return "", time.Time{}, time.Time{}, fmt.Errorf("failed to insert message: %w", err)
	}
	return id, createdAt, expiresAt, nil
}

// MessageFilter narrows GetMessagesForAgent.
type MessageFilter struct {
	Topic string
	Since *time.Time
}

// GetMessagesForAgent returns unread, unexpired messages targeted at
// agentID or broadcast, ordered (priority desc, created_at asc), and
// atomically marks them read by appending agentID to read_by — making
// repeated calls idempotent on the unread set.
func (s *Store) GetMessagesForAgent(ctx context.Context, agentID string, f MessageFilter) ([]*AgentMessage, error) {
	query := `
		SELECT id, from_agent, to_agent, topic, payload, priority, read_by, created_at, expires_at
		FROM agent_messages
		WHERE expires_at > now()
		  AND (to_agent = $1 OR to_agent IS NULL)
		  AND NOT ($1 = ANY(read_by))
	`
	args := []any{agentID}
	if f.Topic != "" {
		args = append(args, f.Topic)
		query += fmt.Sprintf(" AND topic = $%d", len(args))
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	query += " ORDER BY priority DESC, created_at ASC"

	query += " FOR UPDATE"

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var out []*AgentMessage
	var ids []string

	err = func() error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to query messages: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			m, err := scanMessage(rows)
			if err != nil {
				return err
			}
			out = append(out, m)
			ids = append(ids, m.ID)
		}
		return rows.Err()
	}()
	if err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		_, err := tx.Exec(ctx, `
			UPDATE agent_messages SET read_by = array_append(read_by, $2)
			WHERE id = ANY($1) AND NOT ($2 = ANY(read_by))
		`, ids, agentID)
		if err != nil {
			return nil, fmt.Errorf("failed to mark messages read: %w", err)
		}
		for _, m := range out {
			m.ReadBy = append(m.ReadBy, agentID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return out, nil
}

func scanMessage(row rowScanner) (*AgentMessage, error) {
	var m AgentMessage
	var topic string
	var payloadJSON []byte
	if err := row.Scan(&m.ID, &m.FromAgent, &m.ToAgent, &topic, &payloadJSON, &m.Priority, &m.ReadBy, &m.CreatedAt, &m.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}
	m.Topic = MessageTopic(topic)
	if len(payloadJSON) > 0 {
		_ = json.Unmarshal(payloadJSON, &m.Payload)
	}
	return &m, nil
}

// ListMessages returns all non-expired messages, for GET /messages
// (an operator/debug listing, not the per-agent delivery path).
func (s *Store) ListMessages(ctx context.Context, limit, offset int) ([]*AgentMessage, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, from_agent, to_agent, topic, payload, priority, read_by, created_at, expires_at
		FROM agent_messages WHERE expires_at > now()
		ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var out []*AgentMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpsertSubscription registers (agentID, topic) interest, upserting on
// the natural key.
func (s *Store) UpsertSubscription(ctx context.Context, agentID, topic, callbackURL string) (*Subscription, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO subscriptions (agent_id, topic, callback_url)
		VALUES ($1, $2, NULLIF($3, ''))
		ON CONFLICT (agent_id, topic) DO UPDATE SET callback_url = EXCLUDED.callback_url
		RETURNING id, agent_id, topic, callback_url, created_at
	`, agentID, topic, callbackURL)
	return scanSubscription(row)
}

// ListSubscriptions returns all subscriptions.
func (s *Store) ListSubscriptions(ctx context.Context) ([]*Subscription, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, agent_id, topic, callback_url, created_at FROM subscriptions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// ListSubscriptionsForAgent returns subscriptions for one agent.
func (s *Store) ListSubscriptionsForAgent(ctx context.Context, agentID string) ([]*Subscription, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, agent_id, topic, callback_url, created_at FROM subscriptions WHERE agent_id = $1 ORDER BY created_at DESC`, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions for agent: %w", err)
	}
	defer rows.Close()

	var out []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// DeleteSubscription removes a subscription by id.
func (s *Store) DeleteSubscription(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFound("subscription", id)
	}
	return nil
}

// Unsubscribe removes a subscription by its natural key.
func (s *Store) Unsubscribe(ctx context.Context, agentID, topic string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM subscriptions WHERE agent_id = $1 AND topic = $2`, agentID, topic)
	if err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFound("subscription", agentID+"/"+topic)
	}
	return nil
}

func scanSubscription(row rowScanner) (*Subscription, error) {
	var sub Subscription
	if err := row.Scan(&sub.ID, &sub.AgentID, &sub.Topic, &sub.CallbackURL, &sub.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan subscription: %w", err)
	}
	return &sub, nil
}
