package sqlstore

import (
	"context"
	"time"

	"github.com/pliu/chatroom/internal/database"
	"github.com/pliu/chatroom/internal/models"
)

func (s *SQLStore) CreateChat(ctx context.Context, c *models.Chat) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		query := s.rebind("INSERT INTO chats (name, is_group, created_at) VALUES (?, ?, ?) RETURNING id")
		if err := tx.QueryRowContext(ctx, query, c.Name, c.IsGroup, c.CreatedAt).Scan(&c.ID); err != nil {
			return mapErr(err, "chat")
		}
		return s.insertParticipants(ctx, tx, c.ID, c.Participants)
	})
}

func (s *SQLStore) insertParticipants(ctx context.Context, tx database.DBTX, chatID int, userIDs []int) error {
	query := s.rebind("INSERT INTO chat_participants (chat_id, user_id) VALUES (?, ?)")
	seen := make(map[int]struct{}, len(userIDs))
	for _, uid := range userIDs {
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		if _, err := tx.ExecContext(ctx, query, chatID, uid); err != nil {
			return mapErr(err, "chat participant")
		}
	}
	return nil
}

func (s *SQLStore) participants(ctx context.Context, chatID int) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT user_id FROM chat_participants WHERE chat_id = ? ORDER BY user_id"), chatID)
	if err != nil {
		return nil, mapErr(err, "chat participant")
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, mapErr(err, "chat participant")
		}
		ids = append(ids, id)
	}
	return ids, mapErr(rows.Err(), "chat participant")
}

func (s *SQLStore) GetChat(ctx context.Context, id int) (*models.Chat, error) {
	var c models.Chat
	query := s.rebind("SELECT id, name, is_group, created_at FROM chats WHERE id = ?")
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.IsGroup, &c.CreatedAt); err != nil {
		return nil, mapErr(err, "chat")
	}

	ids, err := s.participants(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Participants = ids
	return &c, nil
}

func (s *SQLStore) ListChats(ctx context.Context) ([]models.Chat, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, is_group, created_at FROM chats ORDER BY id")
	if err != nil {
		return nil, mapErr(err, "chat")
	}
	defer rows.Close()

	chats := []models.Chat{}
	index := map[int]int{}
	for rows.Next() {
		var c models.Chat
		if err := rows.Scan(&c.ID, &c.Name, &c.IsGroup, &c.CreatedAt); err != nil {
			return nil, mapErr(err, "chat")
		}
		c.Participants = []int{}
		index[c.ID] = len(chats)
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err, "chat")
	}
	rows.Close()

	prows, err := s.db.QueryContext(ctx, "SELECT chat_id, user_id FROM chat_participants ORDER BY chat_id, user_id")
	if err != nil {
		return nil, mapErr(err, "chat participant")
	}
	defer prows.Close()

	for prows.Next() {
		var chatID, userID int
		if err := prows.Scan(&chatID, &userID); err != nil {
			return nil, mapErr(err, "chat participant")
		}
		if i, ok := index[chatID]; ok {
			chats[i].Participants = append(chats[i].Participants, userID)
		}
	}
	return chats, mapErr(prows.Err(), "chat participant")
}

func (s *SQLStore) UpdateChat(ctx context.Context, c *models.Chat) error {
	return database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		res, err := tx.ExecContext(ctx, s.rebind("UPDATE chats SET name = ?, is_group = ? WHERE id = ?"),
			c.Name, c.IsGroup, c.ID)
		if err != nil {
			return mapErr(err, "chat")
		}
		if err := mustAffect(res, "chat"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM chat_participants WHERE chat_id = ?"), c.ID); err != nil {
			return mapErr(err, "chat participant")
		}
		return s.insertParticipants(ctx, tx, c.ID, c.Participants)
	})
}

func (s *SQLStore) DeleteChat(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM chats WHERE id = ?"), id)
	if err != nil {
		return mapErr(err, "chat")
	}
	return mustAffect(res, "chat")
}
