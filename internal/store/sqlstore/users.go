package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/pliu/chatroom/internal/models"
)

const userColumns = "id, username, email, password, bio, avatar, is_online, is_staff, date_joined"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u      models.User
		avatar sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.Bio, &avatar,
		&u.IsOnline, &u.IsStaff, &u.DateJoined); err != nil {
		return nil, err
	}
	u.Avatar = avatar.String
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *SQLStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now().UTC()
	}
	query := s.rebind(`INSERT INTO users (username, email, password, bio, avatar, is_online, is_staff, date_joined)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := s.db.QueryRowContext(ctx, query, u.Username, u.Email, u.Password, u.Bio,
		nullString(u.Avatar), u.IsOnline, u.IsStaff, u.DateJoined).Scan(&u.ID)
	return mapErr(err, "user")
}

func (s *SQLStore) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	query := s.rebind("SELECT " + userColumns + " FROM users WHERE id = ?")
	u, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapErr(err, "user")
	}
	return u, nil
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := s.rebind("SELECT " + userColumns + " FROM users WHERE username = ?")
	u, err := scanUser(s.db.QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, mapErr(err, "user")
	}
	return u, nil
}

func (s *SQLStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, mapErr(err, "user")
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapErr(err, "user")
		}
		users = append(users, *u)
	}
	return users, mapErr(rows.Err(), "user")
}

func (s *SQLStore) UpdateUser(ctx context.Context, u *models.User) error {
	query := s.rebind(`UPDATE users
		SET username = ?, email = ?, bio = ?, avatar = ?, is_online = ?, is_staff = ?
		WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, u.Username, u.Email, u.Bio, nullString(u.Avatar),
		u.IsOnline, u.IsStaff, u.ID)
	if err != nil {
		return mapErr(err, "user")
	}
	return mustAffect(res, "user")
}

func (s *SQLStore) SetPassword(ctx context.Context, id int, hash string) error {
	res, err := s.db.ExecContext(ctx, s.rebind("UPDATE users SET password = ? WHERE id = ?"), hash, id)
	if err != nil {
		return mapErr(err, "user")
	}
	return mustAffect(res, "user")
}

func (s *SQLStore) DeleteUser(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM users WHERE id = ?"), id)
	if err != nil {
		return mapErr(err, "user")
	}
	return mustAffect(res, "user")
}
