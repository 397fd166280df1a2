package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCmd(t *testing.T, parent *cobra.Command, name string) *cobra.Command {
	t.Helper()
	for _, c := range parent.Commands() {
		if c.Name() == name {
			return c
		}
	}
	t.Fatalf("comando %q no registrado", name)
	return nil
}

func TestRootCmd_Help(t *testing.T) {
	t.Cleanup(func() { rootCmd.SetArgs([]string{}) })
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--help"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "reconcile")
	assert.Contains(t, out.String(), "migrate")
}

func TestComandosRegistrados(t *testing.T) {
	migrate := findCmd(t, rootCmd, "migrate")
	findCmd(t, migrate, "up")
	down := findCmd(t, migrate, "down")
	assert.NotNil(t, down.Flags().Lookup("steps"))

	bootstrap := findCmd(t, rootCmd, "bootstrap")
	for _, flag := range []string{"name", "email", "password", "grant"} {
		assert.NotNil(t, bootstrap.Flags().Lookup(flag), flag)
	}
	mint := findCmd(t, rootCmd, "mint")
	assert.NotNil(t, mint.Flags().Lookup("amount"))
}

func TestBootstrap_ValidaFlagsAntesDeConectar(t *testing.T) {
	cmd := newBootstrapCmd()
	cmd.SetArgs([]string{"--email", "root@custody.local"})
	cmd.SetOut(&bytes.Buffer{})
	err := cmd.Execute()
	assert.ErrorContains(t, err, "--password")
}

func TestMint_ValidaMonto(t *testing.T) {
	cmd := newMintCmd()
	cmd.SetArgs([]string{"--to", "u1", "--amount", "0"})
	cmd.SetOut(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}
