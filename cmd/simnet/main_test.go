package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestAccountsCmd(t *testing.T) {
	out, err := run(t, "accounts")
	require.NoError(t, err)
	assert.Contains(t, out, "deployer")
	assert.Contains(t, out, "wallet_8")
	assert.Contains(t, out, "100000000000000")
}

func TestCallCmd(t *testing.T) {
	out, err := run(t, "call", "counter", "increment", "u1", "--sender", "wallet_1")
	require.NoError(t, err)
	assert.Contains(t, out, "result: (ok u2)")
	assert.Contains(t, out, `{ action: "incremented", object: "count", value: u2 }`)

	_, err = run(t, "call", "counter", "increment", "1")
	assert.Error(t, err)
	_, err = run(t, "call", "counter", "increment", "u1", "--sender", "nobody")
	assert.Error(t, err)
}

func TestPersistentChain(t *testing.T) {
	db := filepath.Join(t.TempDir(), "chain.db")

	_, err := run(t, "call", "counter", "increment", "u1", "--db", db)
	require.NoError(t, err)
	_, err = run(t, "call", "counter", "increment", "u40", "--db", db)
	require.NoError(t, err)

	out, err := run(t, "var", "counter", "count", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "u42\n", out)

	out, err = run(t, "read", "counter", "get-count", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "result: u42")

	out, err = run(t, "contracts", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "(define-public (increment (step uint)) (response uint uint))")
}
