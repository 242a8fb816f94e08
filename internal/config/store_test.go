package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scramble-ai/scramble/internal/adapter"
	"github.com/scramble-ai/scramble/internal/prompt"
)

func TestStoreUpdatePublishesChangedKeys(t *testing.T) {
	store := NewStore(Default())

	var got []Change
	store.Subscribe(func(c Change, _ Config) { got = append(got, c) })

	next := Default()
	next.Provider = adapter.Groq
	next.CustomPrompts = []prompt.Template{{ID: "x", Title: "X", Body: "x"}}
	change := store.Update(next)

	assert.ElementsMatch(t, []string{"provider", "custom_prompts"}, change.Keys)
	assert.True(t, change.Has("custom_prompts"))
	assert.False(t, change.Has("model"))
	require.Len(t, got, 1)
	assert.Equal(t, adapter.Groq, store.Current().Provider)
}

func TestStoreUpdateWithoutChangeIsSilent(t *testing.T) {
	store := NewStore(Default())
	calls := 0
	store.Subscribe(func(Change, Config) { calls++ })

	change := store.Update(Default())

	assert.Empty(t, change.Keys)
	assert.Zero(t, calls)
}

func TestSubscribeFromSubscriber(t *testing.T) {
	store := NewStore(Default())

	var outer, inner int
	store.Subscribe(func(Change, Config) {
		outer++
		store.Subscribe(func(Change, Config) { inner++ })
	})

	next := Default()
	next.Model = "a"
	store.Update(next)
	assert.Equal(t, 1, outer)
	assert.Zero(t, inner)

	next.Model = "b"
	store.Update(next)
	assert.Equal(t, 2, outer)
	assert.Equal(t, 1, inner)
}

func TestRedactedJSONOmitsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Credential = "sk-secret"
	cfg.APIKey = "server-secret"

	data, err := json.Marshal(cfg.Redacted())
	require.NoError(t, err)

	assert.NotContains(t, string(data), "sk-secret")
	assert.NotContains(t, string(data), "server-secret")
	assert.Contains(t, string(data), `"credential_set":true`)
	assert.Contains(t, string(data), `"provider":"openai"`)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	t.Setenv("SCRAMBLE_PROVIDER", "")
	t.Setenv("SCRAMBLE_MODEL", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: openai\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	store := NewStore(cfg)

	var mu sync.Mutex
	var changes []Change
	store.Subscribe(func(c Change, _ Config) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	})

	require.NoError(t, Watch(t.Context(), path, store))

	require.NoError(t, os.WriteFile(path, []byte("provider: openai\ncustom_prompts:\n  - {id: haiku, title: Haiku, prompt: \"As a haiku:\"}\n"), 0644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changes) > 0 && changes[len(changes)-1].Has("custom_prompts")
	}, 3*time.Second, 20*time.Millisecond)
	assert.Len(t, store.Current().CustomPrompts, 1)
}

func TestWatchKeepsSnapshotOnBadFile(t *testing.T) {
	t.Setenv("SCRAMBLE_PROVIDER", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: groq\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	store := NewStore(cfg)
	require.NoError(t, Watch(t.Context(), path, store))

	require.NoError(t, os.WriteFile(path, []byte("provider: gemini\n"), 0644))
	time.Sleep(3 * reloadDelay)

	assert.Equal(t, adapter.Groq, store.Current().Provider)
}
