package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/security-cli/secretshield/pkg/entropy"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerate(t *testing.T) {
	out, err := runCmd(t, "generate", "--min", "3", "--max", "5", "--runs", "50", "--seed", "9")
	require.NoError(t, err)

	var table entropy.Table
	require.NoError(t, json.Unmarshal([]byte(out), &table))
	for _, class := range entropy.Classes {
		_, ok := table.Lookup(class, 4)
		assert.True(t, ok, class)
	}

	again, err := runCmd(t, "generate", "--min", "3", "--max", "5", "--runs", "50", "--seed", "9")
	require.NoError(t, err)
	assert.Equal(t, out, again, "same seed, same table")
}

func TestGenerate_InvalidRange(t *testing.T) {
	_, err := runCmd(t, "generate", "--min", "5", "--max", "3")
	assert.Error(t, err)
}

func TestVariance(t *testing.T) {
	out, err := runCmd(t, "variance", "0123456789abcdef", "32", "--runs", "200", "--seed", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "mean: ")
	assert.Contains(t, out, "99.95%: ")

	_, err = runCmd(t, "variance", "abc", "zero")
	assert.Error(t, err)
}
