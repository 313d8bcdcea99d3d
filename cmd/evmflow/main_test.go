// Copyright 2018 MPI-SWS and Valentin Wuestholz

// This file is part of Bran.
//
// Bran is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Bran is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Bran.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practical-formal-methods/evmflow/analysis"
	"github.com/practical-formal-methods/evmflow/state"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run(append([]string{"evmflow", "--verbosity", "1"}, args...))
	return out.String(), err
}

func TestDisasm(t *testing.T) {
	out, err := runApp(t, "disasm", "--code", "0x6003565b00")
	require.NoError(t, err)
	assert.Equal(t, "block 0 (gas 11)\n00000: PUSH1 0x3\n00002: JUMP []\nblock 3 (gas 1)\n00003: JUMPDEST\n00004: STOP\n", out)
}

func TestDisasmFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code.hex")
	require.NoError(t, os.WriteFile(path, []byte("0x60 01\n00\n"), 0o644))
	out, err := runApp(t, "disasm", path)
	require.NoError(t, err)
	assert.Equal(t, "block 0 (gas 3)\n00000: PUSH1 0x1\n00002: STOP\n", out)

	_, err = runApp(t, "disasm")
	assert.Error(t, err)
	_, err = runApp(t, "disasm", "--code", "600")
	assert.Error(t, err)
}

func TestCfg(t *testing.T) {
	out, err := runApp(t, "cfg", "--code", "6003565b00")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph program {")
	assert.Contains(t, out, "b0 -> b3;")

	_, err = runApp(t, "cfg", "--code", "60003556")
	assert.True(t, errors.Is(err, analysis.ErrControlFlowEscaped), "got %v", err)

	_, err = runApp(t, "cfg", "--revisit", "sometimes", "--code", "00")
	assert.Error(t, err)
}

func TestCfgOutFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.dot")
	out, err := runApp(t, "cfg", "--revisit", "skip", "--out", path, "--code", "6003565b00")
	require.NoError(t, err)
	assert.Empty(t, out)
	dot, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(dot), "b0 -> b3;")
}

func TestRun(t *testing.T) {
	out, err := runApp(t, "run", "--code", "602a60005260206000f3")
	require.NoError(t, err)
	want := "Return(0x" + strings.Repeat("0", 62) + "2a)"
	assert.Equal(t, want+"\n", out)

	out, err = runApp(t, "run", "--code", "60006000fd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Revert("), out)

	_, err = runApp(t, "run")
	assert.Error(t, err)
}

func TestRunCallData(t *testing.T) {
	// Returns the first word of the call data.
	out, err := runApp(t, "run", "--code", "60003560005260206000f3", "--input", "0x"+strings.Repeat("11", 32))
	require.NoError(t, err)
	assert.Equal(t, "Return(0x"+strings.Repeat("11", 32)+")\n", out)
}

func TestRunSavesState(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	out := filepath.Join(dir, "out.json")

	address := common.HexToAddress("0xca")
	set := state.NewStateSet()
	require.NoError(t, set.SetCode(address, common.FromHex("602a60015500")))
	require.NoError(t, set.Save(in))

	_, err := runApp(t, "run", "--state", in, "--address", address.Hex(), "--save", out)
	require.NoError(t, err)

	saved, err := state.LoadStateSet(out)
	require.NoError(t, err)
	value, err := saved.Storage(address, common.HexToHash("0x01"))
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0x2a"), value)

	// The input file is left alone.
	loaded, err := state.LoadStateSet(in)
	require.NoError(t, err)
	value, _ = loaded.Storage(address, common.HexToHash("0x01"))
	assert.Equal(t, common.Hash{}, value)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evmflow.toml")
	require.NoError(t, os.WriteFile(path, []byte(`CacheSize = 16

[Analysis]
Revisit = "skip"
MaxContexts = 3

[VM]
MeterGas = true
`), 0o644))

	cfg := defaultConfig()
	require.NoError(t, loadConfig(path, &cfg))
	assert.Equal(t, analysis.RevisitSkip, cfg.Analysis.Revisit)
	assert.Equal(t, 3, cfg.Analysis.MaxContexts)
	assert.Equal(t, 16, cfg.CacheSize)
	assert.True(t, cfg.VM.MeterGas)
	assert.Equal(t, 1024, cfg.VM.MaxCallDepth)
}

func TestLoadConfigUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evmflow.toml")
	require.NoError(t, os.WriteFile(path, []byte("[VM]\nBogus = 1\n"), 0o644))
	cfg := defaultConfig()
	err := loadConfig(path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'Bogus' is not defined")
}

func TestDumpConfig(t *testing.T) {
	out, err := runApp(t, "dumpconfig")
	require.NoError(t, err)
	assert.Contains(t, out, "[Analysis]")
	assert.Contains(t, out, "MaxContexts = 8")
	assert.Contains(t, out, "MaxCallDepth = 1024")
}
