package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    Config
		wantErr bool
	}{
		{
			name: "empty keeps defaults",
			in:   "",
			want: DefaultConfig(),
		},
		{
			name: "overrides",
			in:   "max_size: 500\nevent_type: \"wrd:*\"\nreset_events: [system:cachereset, system:flush]\n",
			want: Config{
				MaxSize:      500,
				EventType:    "wrd:*",
				ResetEvents:  []string{"system:cachereset", "system:flush"},
				MaxBodyBytes: DefaultMaxBodyBytes,
			},
		},
		{name: "unknown key", in: "maxsize: 5\n", wantErr: true},
		{name: "negative size", in: "max_size: -1\n", wantErr: true},
		{name: "negative body limit", in: "max_body_bytes: -1\n", wantErr: true},
		{name: "not yaml", in: "max_size: [\n", wantErr: true},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfig([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evcache.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_size: 2\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxSize)
	assert.Equal(t, DefaultMaxBodyBytes, cfg.MaxBodyBytes)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewCacheHonoursMaxSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSize = 1
	cache, err := NewCache(cfg, nil, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	s, err := New(cache, Options{})
	require.NoError(t, err)
	s.SetItem(SetItemRequest{LibraryURI: lib, LibraryVersion: 1, Hash: "a"})
	s.SetItem(SetItemRequest{LibraryURI: lib, LibraryVersion: 1, Hash: "b"})
	assert.Equal(t, 1, s.GetStats().CacheSize)

	cfg.MaxSize = -1
	_, err = NewCache(cfg, nil, nil, nil)
	assert.Error(t, err)
}
