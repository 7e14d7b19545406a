package models

import "time"

type User struct {
	ID         int       `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Password   string    `json:"-"`
	Bio        string    `json:"bio"`
	Avatar     string    `json:"-"` // file store key, empty when unset
	IsOnline   bool      `json:"is_online"`
	IsStaff    bool      `json:"-"`
	DateJoined time.Time `json:"-"`
}

// HasAvatar reports whether the user currently references a stored file.
func (u *User) HasAvatar() bool { return u.Avatar != "" }

type Chat struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Participants []int     `json:"participants"`
	IsGroup      bool      `json:"is_group"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasParticipant reports whether userID belongs to the chat.
func (c *Chat) HasParticipant(userID int) bool {
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

type Message struct {
	ID     int       `json:"id"`
	ChatID int       `json:"chat"`
	Sender int       `json:"sender"`
	Text   string    `json:"text"`
	Image  *int      `json:"image"`
	SentAt time.Time `json:"sent_at"`
	IsRead bool      `json:"is_read"`
}

type Image struct {
	ID         int       `json:"id"`
	File       string    `json:"-"` // file store key
	UploadedBy int       `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Upload is a file payload received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}
