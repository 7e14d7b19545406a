package users

import (
	"os"
	"path/filepath"

	"github.com/pliu/chatroom/internal/filestore"
)

func readFile(s *filestore.LocalStore, key string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.Root(), filepath.FromSlash(key)))
}
