package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	root := rootCmd()
	for _, path := range [][]string{
		{"courses"}, {"course"}, {"enroll"}, {"watch"}, {"progress"},
		{"jobs"}, {"job"}, {"save"}, {"unsave"}, {"saved"},
		{"login"}, {"register"}, {"verify-otp"}, {"forgot-password"}, {"reset-password"},
		{"logout"}, {"profile"}, {"cache", "clear"}, {"cache", "list"}, {"tui"}, {"version"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestVersion(t *testing.T) {
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "elevate dev\n", out.String())
}

func TestArgsCheckedBeforeWiring(t *testing.T) {
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"watch", "only-course"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestPrintTable(t *testing.T) {
	var out bytes.Buffer
	printTable(&out, []string{"ID", "Title"}, nil)
	assert.Contains(t, out.String(), "Nothing found.")

	out.Reset()
	printTable(&out, []string{"ID", "Title"}, [][]string{{"7", "Go Basics"}})
	s := out.String()
	assert.Contains(t, s, "Go Basics")
	assert.True(t, strings.Index(s, "Title") < strings.Index(s, "Go Basics"))
}

func TestPrintFieldSkipsEmpty(t *testing.T) {
	var out bytes.Buffer
	printField(&out, "Company", "")
	assert.Empty(t, out.String())
	printField(&out, "Company", "Acme")
	assert.Contains(t, out.String(), "Acme")
}
