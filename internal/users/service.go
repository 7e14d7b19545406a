// Package users implements account operations: registration, login,
// profile reads and updates, deletion and avatar replacement.
package users

import (
	"context"
	"errors"
	"time"

	"github.com/pliu/chatroom/internal/auth"
	"github.com/pliu/chatroom/internal/common"
	"github.com/pliu/chatroom/internal/filestore"
	"github.com/pliu/chatroom/internal/logging"
	"github.com/pliu/chatroom/internal/models"
	"github.com/pliu/chatroom/internal/store"
	"github.com/pliu/chatroom/internal/validate"
)

const (
	msgForbidden    = "You can only access your own user data."
	msgNoAvatar     = "No avatar file provided"
	msgBadLogin     = "Unable to log in with provided credentials."
	msgUsernameUsed = "A user with that username already exists."
)

type Options struct {
	SecretKey          []byte
	TokenTTL           time.Duration
	AvatarMaxDimension int
}

type Service struct {
	store  store.Store
	files  filestore.FileStore
	logger logging.Logger
	opts   Options
}

func NewService(s store.Store, files filestore.FileStore, logger logging.Logger, opts Options) *Service {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	return &Service{store: s, files: files, logger: logger, opts: opts}
}

// Files exposes the file store so callers can resolve avatar URLs.
func (s *Service) Files() filestore.FileStore { return s.files }

type RegisterInput struct {
	Username string `json:"username" validate:"required,max=150,username"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// Register creates a regular account with no avatar.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.createUser(ctx, in, false)
}

// CreateSuperuser creates a staff account.
func (s *Service) CreateSuperuser(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.createUser(ctx, in, true)
}

func (s *Service) createUser(ctx context.Context, in RegisterInput, staff bool) (*models.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &models.User{Username: in.Username, Email: in.Email, Password: hash, IsStaff: staff}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.Conflictf(msgUsernameUsed)
		}
		return nil, err
	}
	s.logger.Info(ctx, "user registered", "user_id", u.ID, "staff", staff)
	return u, nil
}

// ResetPassword replaces the password of the named account. It is meant for
// operators and performs no permission check.
func (s *Service) ResetPassword(ctx context.Context, username, password string) (*models.User, error) {
	if err := validate.Var("password", password, "required,max=128"); err != nil {
		return nil, err
	}
	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetPassword(ctx, u.ID, hash); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "password reset", "user_id", u.ID)
	return u, nil
}

type LoginResult struct {
	Token    string `json:"token"`
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
}

func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, common.Validationf("username and password are required")
	}
	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Unauthorizedf(msgBadLogin)
		}
		return nil, err
	}
	if err := auth.CheckPassword(u.Password, password); err != nil {
		return nil, common.Unauthorizedf(msgBadLogin)
	}

	token, err := auth.GenerateToken(u.ID, u.Username, s.opts.SecretKey, s.opts.TokenTTL)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, UserID: u.ID, Username: u.Username}, nil
}

// Authenticate resolves a bearer token into the caller's identity. The user
// row is re-read so that deleted accounts and staff changes take effect.
func (s *Service) Authenticate(ctx context.Context, token string) (auth.Identity, error) {
	id, err := auth.ParseToken(token, s.opts.SecretKey)
	if err != nil {
		return auth.Identity{}, common.Unauthorizedf("Invalid token.")
	}
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return auth.Identity{}, common.Unauthorizedf("Invalid token.")
		}
		return auth.Identity{}, err
	}
	return auth.Identity{UserID: u.ID, Username: u.Username, IsStaff: u.IsStaff}, nil
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

// target loads the user and checks the actor may act on it.
// A missing user is reported before a permission failure.
func (s *Service) target(ctx context.Context, actor auth.Identity, id int) (*models.User, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(u.ID) {
		return nil, common.Forbiddenf(msgForbidden)
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, actor auth.Identity, id int) (*models.User, error) {
	return s.target(ctx, actor, id)
}

// Update applies a partial update. When the patch carries an avatar the
// replacement follows the same rules as ReplaceAvatar.
func (s *Service) Update(ctx context.Context, actor auth.Identity, id int, patch models.UserPatch) (*models.User, error) {
	u, err := s.target(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return u, nil
	}
	if err := checkPatch(patch); err != nil {
		return nil, err
	}
	patch.Apply(u)

	if patch.Avatar != nil {
		if err := s.replaceAvatar(ctx, u, patch.Avatar); err != nil {
			return nil, err
		}
		return u, nil
	}

	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func checkPatch(p models.UserPatch) error {
	if p.Username.Set {
		if err := validate.Var("username", p.Username.Value, "required,max=150,username"); err != nil {
			return err
		}
	}
	if p.Email.Set {
		if err := validate.Var("email", p.Email.Value, "omitempty,email,max=254"); err != nil {
			return err
		}
	}
	if p.Bio.Set {
		if err := validate.Var("bio", p.Bio.Value, "max=500"); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) save(ctx context.Context, u *models.User) error {
	if err := s.store.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return common.Conflictf(msgUsernameUsed)
		}
		return err
	}
	return nil
}

// Delete removes the account, then its avatar and uploaded images on a
// best-effort basis.
func (s *Service) Delete(ctx context.Context, actor auth.Identity, id int) error {
	u, err := s.target(ctx, actor, id)
	if err != nil {
		return err
	}
	images, err := s.store.ListImagesByUser(ctx, u.ID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, u.ID); err != nil {
		return err
	}

	if u.HasAvatar() {
		s.discard(ctx, u.Avatar)
	}
	for _, img := range images {
		s.discard(ctx, img.File)
	}
	s.logger.Info(ctx, "user deleted", "user_id", u.ID, "by", actor.UserID)
	return nil
}

// discard deletes a file and only logs failures.
func (s *Service) discard(ctx context.Context, key string) {
	if err := s.files.Delete(ctx, key); err != nil {
		s.logger.Warn(ctx, "file delete failed", "key", key, "error", err)
	}
}
