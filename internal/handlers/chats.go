package handlers

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/pliu/chatroom/internal/common"
	"github.com/pliu/chatroom/internal/httpx"
	"github.com/pliu/chatroom/internal/logging"
	"github.com/pliu/chatroom/internal/models"
	"github.com/pliu/chatroom/internal/store"
	"github.com/pliu/chatroom/internal/validate"
	"github.com/pliu/chatroom/internal/ws"
)

type ChatHandler struct {
	Store  store.ChatStore
	Hub    *ws.Hub
	Logger logging.Logger
}

type chatRequest struct {
	Name         string `json:"name" validate:"notblank,max=255"`
	Participants []int  `json:"participants"`
	IsGroup      bool   `json:"is_group"`
}

func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		fail(w, r, h.Logger, err)
		return
	}

	chat := &models.Chat{
		Name:         strings.TrimSpace(req.Name),
		Participants: participantSet(req.Participants),
		IsGroup:      req.IsGroup,
	}
	if caller := identity(r); !chat.HasParticipant(caller.UserID) {
		chat.Participants = participantSet(append(chat.Participants, caller.UserID))
	}
	if err := h.Store.CreateChat(r.Context(), chat); err != nil {
		fail(w, r, h.Logger, participantsErr(err))
		return
	}

	h.Hub.Publish(r.Context(), ws.EventChatCreated, chat, chat.Participants)
	httpx.WriteJSON(w, http.StatusCreated, chat)
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	chats, err := h.Store.ListChats(r.Context())
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	httpx.WriteJSON(w, http.StatusOK, chats)
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	chat, err := h.Store.GetChat(r.Context(), id)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, chat)
}

// Update serves PUT and PATCH as partial updates.
func (h *ChatHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	chat, err := h.Store.GetChat(r.Context(), id)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}

	var body fields
	if err := decodeJSON(r, &body); err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	patch, err := chatPatch(body)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}

	if patch.Name.Set {
		if err := validate.Var("name", patch.Name.Value, "notblank,max=255"); err != nil {
			fail(w, r, h.Logger, err)
			return
		}
		chat.Name = strings.TrimSpace(patch.Name.Value)
	}
	if patch.IsGroup.Set {
		chat.IsGroup = patch.IsGroup.Value
	}
	if patch.Participants.Set {
		chat.Participants = participantSet(patch.Participants.Value)
	}

	if err := h.Store.UpdateChat(r.Context(), chat); err != nil {
		fail(w, r, h.Logger, participantsErr(err))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, chat)
}

func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	if err := h.Store.DeleteChat(r.Context(), id); err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func chatPatch(body fields) (models.ChatPatch, error) {
	var p models.ChatPatch
	if body.has("name") {
		if err := body.decode("name", &p.Name.Value); err != nil {
			return p, err
		}
		p.Name.Set = true
	}
	if body.has("is_group") {
		if err := body.decode("is_group", &p.IsGroup.Value); err != nil {
			return p, err
		}
		p.IsGroup.Set = true
	}
	if body.has("participants") {
		if err := body.decode("participants", &p.Participants.Value); err != nil {
			return p, err
		}
		p.Participants.Set = true
	}
	return p, nil
}

// participantSet returns ids sorted and without duplicates, the way the
// store keeps them. ids is not modified.
func participantSet(ids []int) []int {
	out := append(make([]int, 0, len(ids)), ids...)
	slices.Sort(out)
	return slices.Compact(out)
}

// participantsErr rewords a foreign key failure on the participant list.
func participantsErr(err error) error {
	if errors.Is(err, common.ErrValidation) {
		return common.Validationf("participants: Invalid pk - object does not exist.")
	}
	return err
}
