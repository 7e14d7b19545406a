// Package store declares the persistence contract for users, chats,
// messages and images. Implementations return errors that match
// common.ErrNotFound and common.ErrConflict where applicable.
package store

import (
	"context"

	"github.com/pliu/chatroom/internal/models"
)

type UserStore interface {
	// CreateUser inserts u and sets its ID.
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	// UpdateUser writes every profile column of u, including the avatar key.
	// The password is changed only through SetPassword.
	UpdateUser(ctx context.Context, u *models.User) error
	SetPassword(ctx context.Context, id int, hash string) error
	DeleteUser(ctx context.Context, id int) error
}

type ChatStore interface {
	// CreateChat inserts c together with its participants.
	CreateChat(ctx context.Context, c *models.Chat) error
	GetChat(ctx context.Context, id int) (*models.Chat, error)
	ListChats(ctx context.Context) ([]models.Chat, error)
	// UpdateChat replaces name, group flag and the participant set.
	UpdateChat(ctx context.Context, c *models.Chat) error
	DeleteChat(ctx context.Context, id int) error
}

type MessageStore interface {
	CreateMessage(ctx context.Context, m *models.Message) error
	GetMessage(ctx context.Context, id int) (*models.Message, error)
	// ListMessages returns messages oldest first. chatID 0 lists all chats.
	ListMessages(ctx context.Context, chatID int) ([]models.Message, error)
	UpdateMessage(ctx context.Context, m *models.Message) error
	DeleteMessage(ctx context.Context, id int) error
}

type ImageStore interface {
	CreateImage(ctx context.Context, img *models.Image) error
	GetImage(ctx context.Context, id int) (*models.Image, error)
	ListImages(ctx context.Context) ([]models.Image, error)
	ListImagesByUser(ctx context.Context, userID int) ([]models.Image, error)
	// UpdateImage replaces the stored file key.
	UpdateImage(ctx context.Context, img *models.Image) error
	DeleteImage(ctx context.Context, id int) error
}

type Store interface {
	UserStore
	ChatStore
	MessageStore
	ImageStore
	Ping(ctx context.Context) error
}
