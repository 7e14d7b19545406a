package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/pliu/chatroom/internal/common"
	"github.com/pliu/chatroom/internal/httpx"
	"github.com/pliu/chatroom/internal/logging"
	"github.com/pliu/chatroom/internal/models"
	"github.com/pliu/chatroom/internal/store"
	"github.com/pliu/chatroom/internal/validate"
	"github.com/pliu/chatroom/internal/ws"
)

type MessageStore interface {
	store.MessageStore
	GetChat(ctx context.Context, id int) (*models.Chat, error)
}

type MessageHandler struct {
	Store  MessageStore
	Hub    *ws.Hub
	Logger logging.Logger
}

const maxMessageText = "max=4000"

type messageRequest struct {
	Chat  int    `json:"chat" validate:"required,gt=0"`
	Text  string `json:"text" validate:"required_without=Image,max=4000"`
	Image *int   `json:"image" validate:"omitempty,gt=0"`
}

// Create stores a message sent by the caller and pushes it to the chat's
// participants.
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		fail(w, r, h.Logger, err)
		return
	}

	chat, err := h.Store.GetChat(r.Context(), req.Chat)
	if errors.Is(err, common.ErrNotFound) {
		fail(w, r, h.Logger, common.Validationf("chat: Invalid pk %q - object does not exist.", strconv.Itoa(req.Chat)))
		return
	}
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}

	msg := &models.Message{
		ChatID: chat.ID,
		Sender: identity(r).UserID,
		Text:   req.Text,
		Image:  req.Image,
	}
	if err := h.Store.CreateMessage(r.Context(), msg); err != nil {
		fail(w, r, h.Logger, imageRefErr(err))
		return
	}

	h.Hub.Publish(r.Context(), ws.EventMessageCreated, msg, chat.Participants)
	httpx.WriteJSON(w, http.StatusCreated, msg)
}

// List returns all messages, or those of one chat with ?chat=<id>.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	chatID := 0
	if v := r.URL.Query().Get("chat"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			fail(w, r, h.Logger, common.Validationf("chat: A valid integer is required."))
			return
		}
		chatID = id
	}

	msgs, err := h.Store.ListMessages(r.Context(), chatID)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	httpx.WriteJSON(w, http.StatusOK, msgs)
}

func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	msg, err := h.Store.GetMessage(r.Context(), id)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, msg)
}

// Update changes text, image or the read flag. Chat and sender are fixed.
func (h *MessageHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	msg, err := h.Store.GetMessage(r.Context(), id)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}

	var body fields
	if err := decodeJSON(r, &body); err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	patch, err := messagePatch(body)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	if patch.Text.Set {
		if err := validate.Var("text", patch.Text.Value, maxMessageText); err != nil {
			fail(w, r, h.Logger, err)
			return
		}
		msg.Text = patch.Text.Value
	}
	if patch.Image.Set {
		msg.Image = patch.Image.Value
	}
	if patch.IsRead.Set {
		msg.IsRead = patch.IsRead.Value
	}

	if err := h.Store.UpdateMessage(r.Context(), msg); err != nil {
		fail(w, r, h.Logger, imageRefErr(err))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	if err := h.Store.DeleteMessage(r.Context(), id); err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func messagePatch(body fields) (models.MessagePatch, error) {
	var p models.MessagePatch
	if body.has("text") {
		if err := body.decode("text", &p.Text.Value); err != nil {
			return p, err
		}
		p.Text.Set = true
	}
	if body.has("image") {
		if err := body.decode("image", &p.Image.Value); err != nil {
			return p, err
		}
		p.Image.Set = true
	}
	if body.has("is_read") {
		if err := body.decode("is_read", &p.IsRead.Value); err != nil {
			return p, err
		}
		p.IsRead.Set = true
	}
	return p, nil
}

func imageRefErr(err error) error {
	if errors.Is(err, common.ErrValidation) {
		return common.Validationf("image: Invalid pk - object does not exist.")
	}
	return err
}
