package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileStore keeps credentials in a single JSON file readable only by the
// owner.  The default location is <user config dir>/gotmoney/credentials.json.
type FileStore struct {
	path string

	mu      sync.Mutex
	servers map[string]*ServerCredential
	dirty   bool
}

type credentialFile struct {
	Servers map[string]*ServerCredential `json:"servers"`
}

// DefaultCredentialsPath returns where OpenFileStore("") keeps credentials.
func DefaultCredentialsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine config directory: %w", err)
	}
	return filepath.Join(dir, "gotmoney", "credentials.json"), nil
}

// OpenFileStore loads the credentials file at path, which need not exist yet.
func OpenFileStore(path string) (*FileStore, error) {
	if path == "" {
		var err error
		if path, err = DefaultCredentialsPath(); err != nil {
			return nil, err
		}
	}
	fs := &FileStore{path: path, servers: make(map[string]*ServerCredential)}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, err
	}
	var file credentialFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for k, v := range file.Servers {
		fs.servers[k] = v
	}
	return fs, nil
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) GetCredential(serverURL string) (*ServerCredential, error) {
	key, err := serverKey(serverURL)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.servers[key], nil
}

func (f *FileStore) SetCredential(serverURL string, cred *ServerCredential) error {
	key, err := serverKey(serverURL)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.servers[key] = cred
	f.dirty = true
	return nil
}

func (f *FileStore) RemoveCredential(serverURL string) error {
	key, err := serverKey(serverURL)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.servers[key]; ok {
		delete(f.servers, key)
		f.dirty = true
	}
	return nil
}

func (f *FileStore) ListServers() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.servers))
	for k := range f.servers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// Save writes the file if anything changed.  The write goes through a temp
// file so a crash never leaves a truncated file behind.
func (f *FileStore) Save() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dirty {
		return nil
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(credentialFile{Servers: f.servers}, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	f.dirty = false
	return nil
}
