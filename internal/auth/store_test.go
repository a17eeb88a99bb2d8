package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sespe/emendas-bi/internal/logger"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.json")
	return NewStore(path, "", logger.NewWithWriter(nil)), path
}

func TestStore_AddAndAuthenticate(t *testing.T) {
	store, _ := newTestStore(t)

	created, err := store.Add("sespe", "Admin@2025!", "Administrador", "admin")
	require.NoError(t, err)
	assert.True(t, created)

	assert.True(t, store.Authenticate("sespe", "Admin@2025!"))
	assert.False(t, store.Authenticate("sespe", "senha-errada"))
	assert.False(t, store.Authenticate("desconhecido", "Admin@2025!"))
}

func TestStore_AddDuplicate(t *testing.T) {
	store, _ := newTestStore(t)

	created, err := store.Add("sespe", "senha", "Um", "user")
	require.NoError(t, err)
	require.True(t, created)

	created, err = store.Add("sespe", "outra", "Dois", "admin")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestStore_PersistsAcrossLoads(t *testing.T) {
	store, path := newTestStore(t)
	_, err := store.Add("gestor", "Gestor@2025!", "Gestor de Saúde", "user")
	require.NoError(t, err)

	reloaded := NewStore(path, "", logger.NewWithWriter(nil))
	assert.True(t, reloaded.Authenticate("gestor", "Gestor@2025!"))

	info := reloaded.GetInfo("gestor")
	require.NotNil(t, info)
	assert.Equal(t, "Gestor de Saúde", info.Name)
	assert.Equal(t, "user", info.Role)
}

func TestStore_Remove(t *testing.T) {
	store, path := newTestStore(t)
	_, err := store.Add("temporario", "senha", "Temp", "user")
	require.NoError(t, err)

	removed, err := store.Remove("temporario")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Remove("temporario")
	require.NoError(t, err)
	assert.False(t, removed)

	reloaded := NewStore(path, "", logger.NewWithWriter(nil))
	assert.False(t, reloaded.Authenticate("temporario", "senha"))
}

func TestStore_List(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Add("zulu", "s", "Zulu", "user")
	require.NoError(t, err)
	_, err = store.Add("alfa", "s", "Alfa", "admin")
	require.NoError(t, err)

	users := store.List()
	require.Len(t, users, 2)
	assert.Equal(t, "alfa", users[0].Username)
	assert.Equal(t, "zulu", users[1].Username)
}

func TestStore_GetInfoOmitsPassword(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Add("sespe", "segredo", "Admin", "admin")
	require.NoError(t, err)

	info := store.GetInfo("sespe")
	require.NotNil(t, info)
	assert.Equal(t, UserInfo{Username: "sespe", Name: "Admin", Role: "admin"}, *info)

	assert.Nil(t, store.GetInfo("ninguem"))
}

func TestStore_FailsClosed(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "nope.json"), "", logger.NewWithWriter(nil))
		assert.False(t, store.Authenticate("sespe", "qualquer"))
		assert.Empty(t, store.List())
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "credentials.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		store := NewStore(path, "", logger.NewWithWriter(nil))
		assert.False(t, store.Authenticate("sespe", "qualquer"))
	})
}

func TestStore_SecretsPreferred(t *testing.T) {
	dir := t.TempDir()

	digest, err := HashPassword("do-segredo")
	require.NoError(t, err)
	secrets := filepath.Join(dir, "secrets.toml")
	require.NoError(t, os.WriteFile(secrets, []byte(
		"[credentials.sespe]\npassword = \""+digest+"\"\nname = \"Admin\"\nrole = \"admin\"\n"), 0o600))

	// The JSON file also exists but must be shadowed by the secrets.
	creds := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(creds, []byte(`{"outro": {"password": "x", "name": "Outro", "role": "user"}}`), 0o600))

	store := NewStore(creds, secrets, logger.NewWithWriter(nil))
	assert.True(t, store.Authenticate("sespe", "do-segredo"))
	assert.Nil(t, store.GetInfo("outro"))
}

func TestStore_EmptySecretsFallsBack(t *testing.T) {
	dir := t.TempDir()

	secrets := filepath.Join(dir, "secrets.toml")
	require.NoError(t, os.WriteFile(secrets, []byte("# no credentials section\n"), 0o600))

	digest, err := HashPassword("da-lista")
	require.NoError(t, err)
	creds := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(creds, []byte(`{"sespe": {"password": "`+digest+`", "name": "Admin", "role": "admin"}}`), 0o600))

	store := NewStore(creds, secrets, logger.NewWithWriter(nil))
	assert.True(t, store.Authenticate("sespe", "da-lista"))
}
