package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/pliu/chatroom/internal/logging"
	"github.com/pliu/chatroom/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageCRUD(t *testing.T) {
	e := newEnv(t)
	h := &MessageHandler{Store: e.store, Logger: logging.Nop()}
	alice := e.register(t, "alice")
	bob := e.register(t, "bob")

	general := &models.Chat{Name: "general", Participants: []int{alice.UserID, bob.UserID}}
	require.NoError(t, e.store.CreateChat(context.Background(), general))
	other := &models.Chat{Name: "other", Participants: []int{alice.UserID}}
	require.NoError(t, e.store.CreateChat(context.Background(), other))

	rr := serve(t, h.Create, request{
		method: http.MethodPost, as: &alice,
		body: jsonBody(t, map[string]any{"chat": general.ID, "text": "hi", "sender": bob.UserID}),
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	msg := decode[models.Message](t, rr)
	assert.Equal(t, alice.UserID, msg.Sender, "sender is always the caller")
	assert.Equal(t, general.ID, msg.ChatID)
	assert.False(t, msg.IsRead)

	rr = serve(t, h.Create, request{
		method: http.MethodPost, as: &alice,
		body: jsonBody(t, map[string]any{"chat": other.ID, "text": "elsewhere"}),
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = serve(t, h.List, request{method: http.MethodGet, target: "/messages?chat=" + strconv.Itoa(general.ID), as: &bob})
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]models.Message](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, "hi", list[0].Text)

	rr = serve(t, h.List, request{method: http.MethodGet, target: "/messages", as: &bob})
	assert.Len(t, decode[[]models.Message](t, rr), 2)

	rr = serve(t, h.Update, request{
		method: http.MethodPatch, vars: vars(msg.ID), as: &bob,
		body: strings.NewReader(`{"is_read":true}`),
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[models.Message](t, rr)
	assert.True(t, updated.IsRead)
	assert.Equal(t, "hi", updated.Text)

	rr = serve(t, h.Get, request{method: http.MethodGet, vars: vars(msg.ID), as: &bob})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[models.Message](t, rr).IsRead)

	rr = serve(t, h.Delete, request{method: http.MethodDelete, vars: vars(msg.ID), as: &bob})
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = serve(t, h.Get, request{method: http.MethodGet, vars: vars(msg.ID), as: &bob})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateMessage_Invalid(t *testing.T) {
	e := newEnv(t)
	h := &MessageHandler{Store: e.store, Logger: logging.Nop()}
	alice := e.register(t, "alice")
	chat := &models.Chat{Name: "c", Participants: []int{alice.UserID}}
	require.NoError(t, e.store.CreateChat(context.Background(), chat))

	cases := map[string]any{
		"missing chat":  map[string]any{"text": "hi"},
		"negative chat": map[string]any{"chat": -1, "text": "hi"},
		"long text":     map[string]any{"chat": chat.ID, "text": strings.Repeat("x", 4001)},
		"unknown chat":  map[string]any{"chat": 999, "text": "hi"},
		"empty message": map[string]any{"chat": chat.ID},
		"unknown image": map[string]any{"chat": chat.ID, "text": "hi", "image": 999},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := serve(t, h.Create, request{method: http.MethodPost, as: &alice, body: jsonBody(t, body)})
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}

	rr := serve(t, h.Create, request{method: http.MethodPost, as: &alice, body: jsonBody(t, map[string]any{"chat": chat.ID})})
	assert.Equal(t, "text: this field is required", errorMessage(t, rr))

	rr = serve(t, h.List, request{method: http.MethodGet, target: "/messages?chat=abc", as: &alice})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
