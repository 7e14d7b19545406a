package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/pliu/chatroom/internal/common"
	"github.com/pliu/chatroom/internal/filestore"
	"github.com/pliu/chatroom/internal/httpx"
	"github.com/pliu/chatroom/internal/logging"
	"github.com/pliu/chatroom/internal/media"
	"github.com/pliu/chatroom/internal/models"
	"github.com/pliu/chatroom/internal/store"
)

type ImageHandler struct {
	Store          store.ImageStore
	Files          filestore.FileStore
	URLs           URLBuilder
	MaxUploadBytes int64
	Logger         logging.Logger
}

type imageView struct {
	ID         int       `json:"id"`
	Image      string    `json:"image"`
	UploadedBy int       `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func (h *ImageHandler) view(r *http.Request, img *models.Image) imageView {
	return imageView{
		ID:         img.ID,
		Image:      h.URLs.Absolute(r, img.File),
		UploadedBy: img.UploadedBy,
		UploadedAt: img.UploadedAt,
	}
}

// Create accepts a multipart upload in the "image" field.
func (h *ImageHandler) Create(w http.ResponseWriter, r *http.Request) {
	up, err := h.upload(w, r)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	key, err := h.store(r.Context(), up)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}

	img := &models.Image{File: key, UploadedBy: identity(r).UserID}
	if err := h.Store.CreateImage(r.Context(), img); err != nil {
		h.discard(r.Context(), key)
		fail(w, r, h.Logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, h.view(r, img))
}

func (h *ImageHandler) List(w http.ResponseWriter, r *http.Request) {
	images, err := h.Store.ListImages(r.Context())
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	out := make([]imageView, 0, len(images))
	for i := range images {
		out = append(out, h.view(r, &images[i]))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *ImageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	img, err := h.Store.GetImage(r.Context(), id)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.view(r, img))
}

// Update swaps the stored file. The previous file is removed once the
// record points at the new one.
func (h *ImageHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	img, err := h.Store.GetImage(r.Context(), id)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	up, err := h.upload(w, r)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	key, err := h.store(r.Context(), up)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}

	old := img.File
	img.File = key
	if err := h.Store.UpdateImage(r.Context(), img); err != nil {
		h.discard(r.Context(), key)
		fail(w, r, h.Logger, err)
		return
	}
	h.discard(r.Context(), old)
	httpx.WriteJSON(w, http.StatusOK, h.view(r, img))
}

func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	img, err := h.Store.GetImage(r.Context(), id)
	if err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	if err := h.Store.DeleteImage(r.Context(), id); err != nil {
		fail(w, r, h.Logger, err)
		return
	}
	h.discard(r.Context(), img.File)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ImageHandler) upload(w http.ResponseWriter, r *http.Request) (*models.Upload, error) {
	if !isMultipart(r) {
		return nil, common.Validationf("image: No file was submitted.")
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := parseMultipart(r, h.MaxUploadBytes); err != nil {
		return nil, err
	}
	up, err := formFile(r, "image")
	if err != nil {
		return nil, err
	}
	if up == nil || len(up.Data) == 0 {
		return nil, common.Validationf("image: No file was submitted.")
	}
	return up, nil
}

func (h *ImageHandler) store(ctx context.Context, up *models.Upload) (string, error) {
	prepared, err := media.Prepare(up, filestore.ImagePrefix, 0)
	if err != nil {
		if errors.Is(err, media.ErrNotImage) {
			return "", common.Validationf("image: Upload a valid image.")
		}
		return "", common.Validationf("image: Upload a valid image. %v", err)
	}
	if err := h.Files.Store(ctx, prepared.Key, prepared.ContentType, prepared.Data); err != nil {
		return "", common.Storage("store image", err)
	}
	return prepared.Key, nil
}

func (h *ImageHandler) discard(ctx context.Context, key string) {
	if err := h.Files.Delete(ctx, key); err != nil {
		h.Logger.Warn(ctx, "file delete failed", "key", key, "error", err)
	}
}
