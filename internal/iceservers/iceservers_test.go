package iceservers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iceservers.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"urls": ["stun:stun.example.com:3478"]},
		{"urls": ["turn:turn.example.com:3478"], "username": "u", "credential": "c"}
	]`), 0o644))

	servers, err := Load(path)
	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.Equal(t, []string{"stun:stun.example.com:3478"}, servers[0].URLs)
	assert.Equal(t, "u", servers[1].Username)
	assert.Equal(t, "c", servers[1].Credential)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"an array"}`), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
