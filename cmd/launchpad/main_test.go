package main

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/launchpad-server/pkg/launchpad"
	"github.com/code-payments/launchpad-server/pkg/launchpad/failure"
	"github.com/code-payments/launchpad-server/pkg/solana"
	"github.com/code-payments/launchpad-server/pkg/testutil"
)

func writeKeypair(t *testing.T, key ed25519.PrivateKey) string {
	values := make([]int, len(key))
	for i, b := range key {
		values[i] = int(b)
	}

	raw, err := json.Marshal(values)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, raw, 0600))
	return path
}

func runOffline(t *testing.T, keypair string, args ...string) (string, error) {
	app := newApp()

	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out

	base := []string{"launchpad", "--offline", "--yes", "--log-level", "panic", "--keypair", keypair}
	err := app.Run(append(base, args...))
	return out.String(), err
}

func lineValue(output, prefix string) string {
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return ""
}

func TestLoadKeypair(t *testing.T) {
	key := testutil.GenerateSolanaKeypair(t)

	loaded, err := loadKeypair(writeKeypair(t, key))
	require.NoError(t, err)
	assert.True(t, key.Equal(loaded))

	_, err = loadKeypair(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = loadKeypair(writeKeypair(t, key[:32]))
	assert.Error(t, err)

	tampered := make(ed25519.PrivateKey, len(key))
	copy(tampered, key)
	tampered[63] ^= 0xff
	_, err = loadKeypair(writeKeypair(t, tampered))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`"not an array"`), 0600))
	_, err = loadKeypair(path)
	assert.Error(t, err)
}

func TestOffline_Balance(t *testing.T) {
	key := testutil.GenerateSolanaKeypair(t)

	output, err := runOffline(t, writeKeypair(t, key), "balance")
	require.NoError(t, err)
	assert.Equal(t, "10.000 SOL", lineValue(output, "Balance:"))
	assert.Equal(t, "10,000,000,000", lineValue(output, "Lamports:"))
}

func TestOffline_CreateToken(t *testing.T) {
	key := testutil.GenerateSolanaKeypair(t)

	output, err := runOffline(t, writeKeypair(t, key),
		"create-token",
		"--name", "Test",
		"--symbol", "TST",
		"--supply", "1000000",
		"--image", "https://example.com/test.png",
	)
	require.NoError(t, err)
	assert.Contains(t, output, "Created Test (TST)")
	assert.Equal(t, "1,000,000 (9 decimals)", lineValue(output, "Supply:"))
	assert.NotEmpty(t, lineValue(output, "Mint:"))
}

func TestOffline_SignAndVerify(t *testing.T) {
	key := testutil.GenerateSolanaKeypair(t)
	keypair := writeKeypair(t, key)

	output, err := runOffline(t, keypair, "sign-message", "hello launchpad")
	require.NoError(t, err)

	signer := lineValue(output, "Signer:")
	sig := lineValue(output, "Signature:")
	require.NotEmpty(t, signer)
	require.NotEmpty(t, sig)

	output, err = runOffline(t, keypair, "verify", signer, "hello launchpad", sig)
	require.NoError(t, err)
	assert.Contains(t, output, "Signature is valid")

	_, err = runOffline(t, keypair, "verify", signer, "hello launchpad!", sig)
	assert.Error(t, err)
}

func TestOffline_TransferValidation(t *testing.T) {
	key := testutil.GenerateSolanaKeypair(t)

	_, err := runOffline(t, writeKeypair(t, key), "transfer", "not-an-address", "1")
	require.Error(t, err)

	var workflowErr *launchpad.WorkflowError
	require.True(t, errors.As(err, &workflowErr))
	assert.Equal(t, failure.CategoryValidation, workflowErr.Classification.Category)

	var out bytes.Buffer
	reportError(&out, err)
	assert.Contains(t, out.String(), workflowErr.Classification.Remediation)
	assert.Contains(t, out.String(), "Workflow: transfer")
}

func TestResolveEnvironment(t *testing.T) {
	for _, tc := range []struct {
		name        string
		config      processConfig
		environment solana.Environment
		endpoint    string
	}{
		{"defaults", processConfig{}, solana.EnvironmentDev, string(solana.EnvironmentDev)},
		{"public endpoint", processConfig{RPCEndpoint: string(solana.EnvironmentProd)}, solana.EnvironmentProd, string(solana.EnvironmentProd)},
		{"custom endpoint", processConfig{RPCEndpoint: "http://localhost:8899"}, solana.Environment("http://localhost:8899"), "http://localhost:8899"},
		{"cluster only", processConfig{Cluster: "testnet"}, solana.EnvironmentTest, string(solana.EnvironmentTest)},
		{"custom mainnet endpoint", processConfig{Cluster: "mainnet-beta", RPCEndpoint: "https://rpc.example.com"}, solana.EnvironmentProd, "https://rpc.example.com"},
	} {
		environment, endpoint, err := resolveEnvironment(&tc.config)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.environment, environment, tc.name)
		assert.Equal(t, tc.endpoint, endpoint, tc.name)
	}

	_, _, err := resolveEnvironment(&processConfig{Cluster: "localnet"})
	assert.Error(t, err)
}

func TestAirdrop_CustomMainnetEndpoint(t *testing.T) {
	key := testutil.GenerateSolanaKeypair(t)

	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out

	// refused before the endpoint is ever contacted
	err := app.Run([]string{
		"launchpad",
		"--yes",
		"--log-level", "panic",
		"--keypair", writeKeypair(t, key),
		"--cluster", "mainnet-beta",
		"--rpc", "http://127.0.0.1:1",
		"airdrop", "1",
	})
	require.Error(t, err)

	var workflowErr *launchpad.WorkflowError
	require.True(t, errors.As(err, &workflowErr))
	assert.Equal(t, failure.CategoryValidation, workflowErr.Classification.Category)
	assert.Contains(t, workflowErr.Classification.Diagnostic, "test networks")
}

func TestReportError(t *testing.T) {
	var out bytes.Buffer
	reportError(&out, errors.New("boom"))
	assert.Equal(t, "Error: boom\n", out.String())
}
