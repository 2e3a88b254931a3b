package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haimbb47/SkillForge/fhevmClient/constant"
	"github.com/haimbb47/SkillForge/fhevmClient/db"
	"github.com/haimbb47/SkillForge/fhevmClient/fhevm"
	"github.com/haimbb47/SkillForge/fhevmClient/keycache"
	"github.com/haimbb47/SkillForge/testutils"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "skillforged")
	assert.Contains(t, out, Version)
}

func TestInitWritesConfig(t *testing.T) {
	home := t.TempDir()
	out, err := run(t, "init", "--home", home)
	require.NoError(t, err)
	assert.Contains(t, out, home)
	assert.FileExists(t, filepath.Join(home, constant.ConfigSubdir, constant.ConfigFileName))
}

func TestCacheCommands(t *testing.T) {
	home := t.TempDir()
	acl := testutils.GetDefaultAddresses().ACLAddr.Hex()

	database, err := db.OpenFileDB(filepath.Join(home, constant.DatabasesSubdir), constant.DatabaseFileName, true)
	require.NoError(t, err)
	cache := keycache.New(database, zerolog.Nop())
	require.NoError(t, cache.Set(context.Background(), acl,
		&fhevm.PublicKey{ID: "pk-1", Data: []byte{1, 2, 3}},
		&fhevm.PublicParams{ID: "pp-1", Data: []byte{4, 5}},
	))
	require.NoError(t, database.Close())

	out, err := run(t, "cache", "get", "--home", home, "--acl", acl)
	require.NoError(t, err)
	var entry CacheEntryOutput
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	assert.Equal(t, CacheEntryOutput{
		ACLAddress:        acl,
		PublicKeyID:       "pk-1",
		PublicKeyBytes:    3,
		PublicParamsID:    "pp-1",
		PublicParamsBytes: 2,
	}, entry)

	out, err = run(t, "cache", "clear", "--home", home, "--acl", acl)
	require.NoError(t, err)
	assert.Contains(t, out, "cleared key material")

	out, err = run(t, "cache", "get", "--home", home, "--acl", acl)
	require.NoError(t, err)
	entry = CacheEntryOutput{}
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	assert.Equal(t, CacheEntryOutput{ACLAddress: acl}, entry)
}

func TestCacheCommandRejectsBadAddress(t *testing.T) {
	_, err := run(t, "cache", "get", "--home", t.TempDir(), "--acl", "0x1234")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid address")
}

func TestResolveCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if req.Method != "eth_chainId" {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"error":{"code":-32601,"message":"method not found"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":"0xaa36a7"}`))
	}))
	defer srv.Close()

	out, err := run(t, "resolve", "--home", t.TempDir(), "--rpc-url", srv.URL)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, float64(11155111), got["chain_id"])
	assert.Equal(t, false, got["is_mock"])
	assert.Equal(t, srv.URL, got["rpc_url"])
	assert.NotContains(t, got, "relayer_metadata")
}
