package users

import (
	"context"
	"errors"

	"github.com/pliu/chatroom/internal/auth"
	"github.com/pliu/chatroom/internal/common"
	"github.com/pliu/chatroom/internal/filestore"
	"github.com/pliu/chatroom/internal/media"
	"github.com/pliu/chatroom/internal/models"
)

// ReplaceAvatar stores up as the user's new avatar and drops the old file.
//
// Checks run in order: the user must exist, the actor must be the user or
// staff, and a non-empty payload must be present. The new file is written
// before the user row changes; if either step fails the user keeps the
// previous avatar.
func (s *Service) ReplaceAvatar(ctx context.Context, actor auth.Identity, id int, up *models.Upload) (*models.User, error) {
	u, err := s.target(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if up == nil || len(up.Data) == 0 {
		return nil, common.Validationf(msgNoAvatar)
	}
	if err := s.replaceAvatar(ctx, u, up); err != nil {
		return nil, err
	}
	return u, nil
}

// replaceAvatar writes the new file, persists u pointing at it and then
// removes the previous file. u may carry other pending field changes; they
// are saved in the same update.
func (s *Service) replaceAvatar(ctx context.Context, u *models.User, up *models.Upload) error {
	if len(up.Data) == 0 {
		return common.Validationf(msgNoAvatar)
	}
	prepared, err := media.Prepare(up, filestore.AvatarPrefix, s.opts.AvatarMaxDimension)
	if err != nil {
		if errors.Is(err, media.ErrNotImage) {
			return common.Validationf("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
		}
		return common.Validationf("Upload a valid image. %v", err)
	}

	if err := s.files.Store(ctx, prepared.Key, prepared.ContentType, prepared.Data); err != nil {
		return common.Storage("store avatar", err)
	}

	old := u.Avatar
	u.Avatar = prepared.Key
	if err := s.save(ctx, u); err != nil {
		u.Avatar = old
		s.discard(ctx, prepared.Key)
		return err
	}

	if old != "" && old != prepared.Key {
		s.discard(ctx, old)
	}
	s.logger.Info(ctx, "avatar updated", "user_id", u.ID, "key", prepared.Key)
	return nil
}
