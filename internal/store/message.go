package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/house-agents/internal/model"
)

func (s *SQLiteStore) SendMessage(ctx context.Context, p SendMessageParams) (*model.Message, error) {
	content := strings.TrimSpace(p.Content)
	if content == "" {
		return nil, fmt.Errorf("message content is required")
	}

	msg := &model.Message{
		ID:             s.newID(),
		RelationshipID: p.RelationshipID,
		SenderID:       p.SenderID,
		Content:        content,
	}
	at := stamp(p.At)
	msg.CreatedAt = parseTime(at)

	if p.MaxTrailing <= 0 {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO messages (id, relationship_id, sender_id, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			msg.ID, msg.RelationshipID, msg.SenderID, msg.Content, at)
		if err != nil {
			return nil, fmt.Errorf("insert message: %w", err)
		}
		return msg, nil
	}

	// The last MaxTrailing messages all being from the sender means the
	// trailing run has already reached the limit.
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, relationship_id, sender_id, content, created_at)
		 SELECT ?, ?, ?, ?, ?
		 WHERE (
		   SELECT COUNT(*) FROM (
		     SELECT sender_id FROM messages WHERE relationship_id = ?
		     ORDER BY created_at DESC, id DESC LIMIT ?
		   ) t WHERE t.sender_id = ?
		 ) < ?`,
		msg.ID, msg.RelationshipID, msg.SenderID, msg.Content, at,
		msg.RelationshipID, p.MaxTrailing, msg.SenderID, p.MaxTrailing)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrTrailingLimit
	}
	return msg, nil
}

func (s *SQLiteStore) History(ctx context.Context, relationshipID string, limit int) ([]model.Message, error) {
	query := `SELECT id, relationship_id, sender_id, content, created_at FROM messages
		WHERE relationship_id = ? ORDER BY created_at DESC, id DESC`
	args := []interface{}{relationshipID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		var createdAt string
		if err := rows.Scan(&m.ID, &m.RelationshipID, &m.SenderID, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(createdAt)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query; callers want chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
