package harvest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// FileArtifactStore implements ArtifactStore on the local filesystem. Raw
// bodies land under <root>/<site>/raw/<id>.html and extracted text under
// <root>/<site>/text/<id>.txt, UTF-8 encoded.
type FileArtifactStore struct {
	root string
}

// NewFileArtifactStore returns a store rooted at dir.
func NewFileArtifactStore(root string) (*FileArtifactStore, error) {
	if root == "" {
		return nil, fmt.Errorf("artifact root directory is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create artifact root %s: %w", root, err)
	}
	return &FileArtifactStore{root: root}, nil
}

// SaveRaw writes the fetched body bytes and returns the file path.
func (s *FileArtifactStore) SaveRaw(siteKey string, id int64, body []byte) (string, error) {
	return s.write(siteKey, "raw", strconv.FormatInt(id, 10)+".html", body)
}

// SaveText writes the extracted plain text and returns the file path.
func (s *FileArtifactStore) SaveText(siteKey string, id int64, text string) (string, error) {
	return s.write(siteKey, "text", strconv.FormatInt(id, 10)+".txt", []byte(text))
}

func (s *FileArtifactStore) write(siteKey, kind, name string, data []byte) (string, error) {
	dir := filepath.Join(s.root, siteKey, kind)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create %s dir for site %s: %w", kind, siteKey, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s artifact %s: %w", kind, path, err)
	}
	return path, nil
}
