package store

import (
	"path/filepath"
	"sort"
	"sync"

	"deskwire/internal/domain"
)

const (
	peersFilename    = "peers.json"
	settingsFilename = "settings.json"
)

// OptionFileStore keeps peer options and settings as JSON files under dir.
type OptionFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewOptionFileStore returns a store rooted at dir. Files are created on the
// first write.
func NewOptionFileStore(dir string) *OptionFileStore {
	return &OptionFileStore{dir: dir}
}

func (s *OptionFileStore) peers() (map[string]domain.Options, error) {
	peers := map[string]domain.Options{}
	if err := readJSON(filepath.Join(s.dir, peersFilename), &peers); err != nil {
		return nil, err
	}
	return peers, nil
}

// LoadPeer returns the options for id, or an empty set.
func (s *OptionFileStore) LoadPeer(id string) (domain.Options, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	peers, err := s.peers()
	if err != nil {
		return nil, err
	}
	if opts, ok := peers[id]; ok && opts != nil {
		return opts, nil
	}
	return domain.Options{}, nil
}

// SavePeer replaces the options for id.
func (s *OptionFileStore) SavePeer(id string, opts domain.Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	peers, err := s.peers()
	if err != nil {
		return err
	}
	peers[id] = opts.Clone()
	return writeJSON(filepath.Join(s.dir, peersFilename), peers, 0o600)
}

// DeletePeer forgets id. Unknown ids are not an error.
func (s *OptionFileStore) DeletePeer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	peers, err := s.peers()
	if err != nil {
		return err
	}
	if _, ok := peers[id]; !ok {
		return nil
	}
	delete(peers, id)
	return writeJSON(filepath.Join(s.dir, peersFilename), peers, 0o600)
}

// ListPeers returns stored ids in sorted order.
func (s *OptionFileStore) ListPeers() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	peers, err := s.peers()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(peers))
	for id := range peers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Setting returns a process-wide setting or "".
func (s *OptionFileStore) Setting(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings := map[string]string{}
	if err := readJSON(filepath.Join(s.dir, settingsFilename), &settings); err != nil {
		return "", err
	}
	return settings[key], nil
}

// SetSetting stores a setting; an empty value deletes it.
func (s *OptionFileStore) SetSetting(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := filepath.Join(s.dir, settingsFilename)
	settings := map[string]string{}
	if err := readJSON(path, &settings); err != nil {
		return err
	}
	if value == "" {
		delete(settings, key)
	} else {
		settings[key] = value
	}
	return writeJSON(path, settings, 0o600)
}

// Compile-time assertion that OptionFileStore implements domain.OptionStore.
var _ domain.OptionStore = (*OptionFileStore)(nil)
