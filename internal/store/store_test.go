package store_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskwire/internal/domain"
	"deskwire/internal/store"
)

var fastKDF = store.KDFParams{N: 1 << 4, R: 8, P: 1}

func backends(t *testing.T) map[string]domain.OptionStore {
	t.Helper()
	home := t.TempDir()
	db, err := store.OpenSQLiteStore(filepath.Join(home, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return map[string]domain.OptionStore{
		"file":   store.NewOptionFileStore(filepath.Join(home, "files")),
		"sqlite": db,
	}
}

func TestOptionStore_PeerLifecycle(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			opts, err := s.LoadPeer("123")
			require.NoError(t, err)
			assert.Empty(t, opts)

			opts.Set(domain.OptRemember, "Y")
			opts.Set(domain.OptImageQuality, "best")
			require.NoError(t, s.SavePeer("123", opts))
			require.NoError(t, s.SavePeer("456", domain.Options{"x": "1"}))

			got, err := s.LoadPeer("123")
			require.NoError(t, err)
			assert.Equal(t, "best", got.Get(domain.OptImageQuality))
			assert.True(t, got.Bool(domain.OptRemember))
			assert.NotEmpty(t, got.Get(domain.OptTimestamp))

			// Save replaces rather than merges.
			delete(got, domain.OptImageQuality)
			require.NoError(t, s.SavePeer("123", got))
			got, err = s.LoadPeer("123")
			require.NoError(t, err)
			assert.Empty(t, got.Get(domain.OptImageQuality))

			ids, err := s.ListPeers()
			require.NoError(t, err)
			assert.Equal(t, []string{"123", "456"}, ids)

			require.NoError(t, s.DeletePeer("123"))
			require.NoError(t, s.DeletePeer("nope"))
			ids, err = s.ListPeers()
			require.NoError(t, err)
			assert.Equal(t, []string{"456"}, ids)
		})
	}
}

func TestOptionStore_Settings(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			v, err := s.Setting(domain.SettingRendezvousServer)
			require.NoError(t, err)
			assert.Empty(t, v)

			require.NoError(t, s.SetSetting(domain.SettingRendezvousServer, "rs-us.rustdesk.com"))
			require.NoError(t, s.SetSetting(domain.SettingRendezvousServer, "rs-sg.rustdesk.com"))
			v, err = s.Setting(domain.SettingRendezvousServer)
			require.NoError(t, err)
			assert.Equal(t, "rs-sg.rustdesk.com", v)

			require.NoError(t, s.SetSetting(domain.SettingRendezvousServer, ""))
			v, err = s.Setting(domain.SettingRendezvousServer)
			require.NoError(t, err)
			assert.Empty(t, v)
		})
	}
}

func TestOptionFileStore_ConcurrentWriters(t *testing.T) {
	s := store.NewOptionFileStore(t.TempDir())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.SavePeer(string(rune('a'+i)), domain.Options{"n": "1"})
		}(i)
	}
	wg.Wait()
	ids, err := s.ListPeers()
	require.NoError(t, err)
	assert.Len(t, ids, 8)
}

func TestOptionFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "peers.json"), []byte("{not json"), 0o600))
	_, err := store.NewOptionFileStore(dir).LoadPeer("x")
	assert.Error(t, err)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.db")
	s, err := store.OpenSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SavePeer("p", domain.Options{"k": "v"}))
	require.NoError(t, s.Close())

	s, err = store.OpenSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.LoadPeer("p")
	require.NoError(t, err)
	assert.Equal(t, "v", got["k"])
}

func TestSealedStore(t *testing.T) {
	dir := t.TempDir()
	inner := store.NewOptionFileStore(dir)
	s, err := store.NewSealedStore(inner, "hunter2", fastKDF)
	require.NoError(t, err)

	require.NoError(t, s.SavePeer("123", domain.Options{
		domain.OptPassword:   "cGFzc3dvcmQtaGFzaA==",
		domain.OptOSPassword: "os-secret",
		domain.OptRemember:   "Y",
	}))

	raw, err := inner.LoadPeer("123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw[domain.OptPassword], "sealed:v1:"))
	assert.NotContains(t, raw[domain.OptOSPassword], "os-secret")
	assert.Equal(t, "Y", raw[domain.OptRemember])

	got, err := s.LoadPeer("123")
	require.NoError(t, err)
	assert.Equal(t, "cGFzc3dvcmQtaGFzaA==", got[domain.OptPassword])
	assert.Equal(t, "os-secret", got[domain.OptOSPassword])

	// Same salt, other passphrase: secrets are unreadable and left out.
	wrong, err := store.NewSealedStore(inner, "letmein", fastKDF)
	require.NoError(t, err)
	got, err = wrong.LoadPeer("123")
	require.NoError(t, err)
	assert.NotContains(t, got, domain.OptPassword)
	assert.Equal(t, "Y", got[domain.OptRemember])
}

func TestOpen_Drivers(t *testing.T) {
	home := t.TempDir()
	for _, driver := range []string{"", store.DriverFile, store.DriverSQLite} {
		s, closeFn, err := store.Open(store.Config{Driver: driver, Home: home, Passphrase: "p", KDF: fastKDF})
		require.NoError(t, err, driver)
		require.NoError(t, s.SetSetting("k", driver+"v"))
		require.NoError(t, closeFn())
	}
	_, _, err := store.Open(store.Config{Driver: "redis", Home: home})
	assert.Error(t, err)
}
