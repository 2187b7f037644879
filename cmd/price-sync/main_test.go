package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:"+filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestStoresLifecycle(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "stores", "add", "--name", "Main", "--domain", "Main-Shop", "--token", "shpat_secret1234", "--format", "json")
	require.NoError(t, err)
	var created []storeView
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.Len(t, created, 1)
	id := created[0].ID
	assert.Equal(t, "main-shop.myshopify.com", created[0].ShopifyDomain)
	assert.Equal(t, "****1234", created[0].APIToken)
	assert.Equal(t, "idle", created[0].LastSyncStatus)

	out, err = execute(t, "stores", "pause", id)
	require.NoError(t, err)
	assert.Contains(t, out, "paused")

	out, err = execute(t, "stores", "list", "--active")
	require.NoError(t, err)
	assert.NotContains(t, out, id)

	_, err = execute(t, "stores", "resume", id)
	require.NoError(t, err)
	out, err = execute(t, "stores", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "main-shop.myshopify.com")
	assert.NotContains(t, out, "shpat_secret1234")

	_, err = execute(t, "stores", "remove", id)
	require.NoError(t, err)
	_, err = execute(t, "stores", "pause", id)
	require.Error(t, err)
	assert.Equal(t, exitCommandError, exitCode(err))
}

func TestSync_NoStores(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "sync")
	require.NoError(t, err)
	assert.Equal(t, "no active stores to sync", strings.TrimSpace(out))
}

func TestSync_UnknownStore(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "sync", "--store", "missing")
	require.Error(t, err)
	assert.Equal(t, exitCommandError, exitCode(err))
	assert.ErrorContains(t, err, "store not found")
}

func TestLogs(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "logs", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))

	_, err = execute(t, "logs", "--status", "exploded")
	assert.ErrorContains(t, err, "invalid status")
}

func TestMigrate(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date (sqlite)")
}

func TestInvalidFormat(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "stores", "list", "--format", "xml")
	assert.ErrorContains(t, err, "invalid format")
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", maskToken("abc"))
	assert.Equal(t, "****wxyz", maskToken("shpat_wxyz"))
}
