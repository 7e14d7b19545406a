package sqlstore

import (
	"context"
	"time"

	"github.com/pliu/chatroom/internal/models"
)

const imageColumns = "id, file, uploaded_by, uploaded_at"

func scanImage(row rowScanner) (*models.Image, error) {
	var img models.Image
	if err := row.Scan(&img.ID, &img.File, &img.UploadedBy, &img.UploadedAt); err != nil {
		return nil, err
	}
	return &img, nil
}

func (s *SQLStore) CreateImage(ctx context.Context, img *models.Image) error {
	if img.UploadedAt.IsZero() {
		img.UploadedAt = time.Now().UTC()
	}
	query := s.rebind("INSERT INTO images (file, uploaded_by, uploaded_at) VALUES (?, ?, ?) RETURNING id")
	err := s.db.QueryRowContext(ctx, query, img.File, img.UploadedBy, img.UploadedAt).Scan(&img.ID)
	return mapErr(err, "image")
}

func (s *SQLStore) GetImage(ctx context.Context, id int) (*models.Image, error) {
	img, err := scanImage(s.db.QueryRowContext(ctx, s.rebind("SELECT "+imageColumns+" FROM images WHERE id = ?"), id))
	if err != nil {
		return nil, mapErr(err, "image")
	}
	return img, nil
}

func (s *SQLStore) ListImages(ctx context.Context) ([]models.Image, error) {
	return s.queryImages(ctx, "SELECT "+imageColumns+" FROM images ORDER BY id")
}

func (s *SQLStore) ListImagesByUser(ctx context.Context, userID int) ([]models.Image, error) {
	return s.queryImages(ctx, s.rebind("SELECT "+imageColumns+" FROM images WHERE uploaded_by = ? ORDER BY id"), userID)
}

func (s *SQLStore) queryImages(ctx context.Context, query string, args ...any) ([]models.Image, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err, "image")
	}
	defer rows.Close()

	images := []models.Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, mapErr(err, "image")
		}
		images = append(images, *img)
	}
	return images, mapErr(rows.Err(), "image")
}

func (s *SQLStore) UpdateImage(ctx context.Context, img *models.Image) error {
	res, err := s.db.ExecContext(ctx, s.rebind("UPDATE images SET file = ? WHERE id = ?"), img.File, img.ID)
	if err != nil {
		return mapErr(err, "image")
	}
	return mustAffect(res, "image")
}

func (s *SQLStore) DeleteImage(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM images WHERE id = ?"), id)
	if err != nil {
		return mapErr(err, "image")
	}
	return mustAffect(res, "image")
}
