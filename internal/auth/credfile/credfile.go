// Package credfile persists the credential pair on the client machine. It is
// the durable checkpoint of session state: a restart resumes from the last
// written pair or, when the file is absent, from an unauthenticated session.
package credfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/explanner/planner-client/internal/auth/model"
)

// ErrNotFound is returned by Load when no credential pair has been persisted.
var ErrNotFound = errors.New("credential file not found")

// File stores a single credential pair as JSON under a well-known path.
type File struct {
	path string
}

func New(path string) *File {
	return &File{path: path}
}

func (f *File) Path() string {
	return f.path
}

// Save writes the pair to disk, creating parent directories as needed. The
// file carries 0600 permissions since it holds live credentials.
func (f *File) Save(pair model.TokenPair) error {
	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("marshal credential pair: %w", err)
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create credential dir: %w", err)
		}
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	return nil
}

// Load reads the persisted pair. A missing file maps to ErrNotFound; a file
// that does not deserialize into a whole pair is reported as an error so the
// caller can fail soft.
func (f *File) Load() (model.TokenPair, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.TokenPair{}, ErrNotFound
		}
		return model.TokenPair{}, fmt.Errorf("read credential file: %w", err)
	}
	var pair model.TokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return model.TokenPair{}, fmt.Errorf("decode credential file: %w", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return model.TokenPair{}, errors.New("credential file incomplete")
	}
	return pair, nil
}

// Delete removes the persisted pair. Deleting an absent file is not an error.
func (f *File) Delete() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}
