package media

import (
	"github.com/pliu/chatroom/internal/filestore"
	"github.com/pliu/chatroom/internal/models"
)

// Prepared is an upload ready to be written to a file store.
type Prepared struct {
	Key         string
	ContentType string
	Data        []byte
}

// Prepare sniffs the upload, optionally downsizes it and assigns a fresh key
// under prefix. Errors wrap ErrNotImage or a decode failure.
func Prepare(up *models.Upload, prefix string, maxDim int) (Prepared, error) {
	info, err := Inspect(up.Data, up.Filename)
	if err != nil {
		return Prepared{}, err
	}
	data, err := Fit(up.Data, info, maxDim)
	if err != nil {
		return Prepared{}, err
	}
	return Prepared{
		Key:         filestore.NewKey(prefix, info.Ext),
		ContentType: info.ContentType,
		Data:        data,
	}, nil
}
