package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/pliu/chatroom/internal/models"
)

const messageColumns = "id, chat_id, sender_id, text, image_id, sent_at, is_read"

func scanMessage(row rowScanner) (*models.Message, error) {
	var (
		m     models.Message
		image sql.NullInt64
	)
	if err := row.Scan(&m.ID, &m.ChatID, &m.Sender, &m.Text, &image, &m.SentAt, &m.IsRead); err != nil {
		return nil, err
	}
	if image.Valid {
		id := int(image.Int64)
		m.Image = &id
	}
	return &m, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func (s *SQLStore) CreateMessage(ctx context.Context, m *models.Message) error {
	if m.SentAt.IsZero() {
		m.SentAt = time.Now().UTC()
	}
	query := s.rebind(`INSERT INTO messages (chat_id, sender_id, text, image_id, sent_at, is_read)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
	err := s.db.QueryRowContext(ctx, query, m.ChatID, m.Sender, m.Text, nullInt(m.Image), m.SentAt, m.IsRead).Scan(&m.ID)
	return mapErr(err, "message")
}

func (s *SQLStore) GetMessage(ctx context.Context, id int) (*models.Message, error) {
	query := s.rebind("SELECT " + messageColumns + " FROM messages WHERE id = ?")
	m, err := scanMessage(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapErr(err, "message")
	}
	return m, nil
}

func (s *SQLStore) ListMessages(ctx context.Context, chatID int) ([]models.Message, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if chatID > 0 {
		rows, err = s.db.QueryContext(ctx,
			s.rebind("SELECT "+messageColumns+" FROM messages WHERE chat_id = ? ORDER BY sent_at, id"), chatID)
	} else {
		rows, err = s.db.QueryContext(ctx, "SELECT "+messageColumns+" FROM messages ORDER BY sent_at, id")
	}
	if err != nil {
		return nil, mapErr(err, "message")
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, mapErr(err, "message")
		}
		messages = append(messages, *m)
	}
	return messages, mapErr(rows.Err(), "message")
}

func (s *SQLStore) UpdateMessage(ctx context.Context, m *models.Message) error {
	query := s.rebind("UPDATE messages SET text = ?, image_id = ?, is_read = ? WHERE id = ?")
	res, err := s.db.ExecContext(ctx, query, m.Text, nullInt(m.Image), m.IsRead, m.ID)
	if err != nil {
		return mapErr(err, "message")
	}
	return mustAffect(res, "message")
}

func (s *SQLStore) DeleteMessage(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM messages WHERE id = ?"), id)
	if err != nil {
		return mapErr(err, "message")
	}
	return mustAffect(res, "message")
}
