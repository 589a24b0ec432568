package cli

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionFlag(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := RunWithArgs("0.1.0-test", []string{"--version"})

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	output := buf.String()

	assert.NoError(t, err)
	assert.Contains(t, output, "meander 0.1.0-test")
}

func TestVersionOutputFormat(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	_ = RunWithArgs("1.2.3", []string{"--version"})

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	output := strings.TrimSpace(buf.String())

	assert.Equal(t, "meander 1.2.3", output)
}

func TestSubcommandsRegistered(t *testing.T) {
	parser, _, cmds := buildParser("test")

	for _, name := range []string{"status", "sessions", "show", "watch", "reset"} {
		assert.NotNil(t, parser.Find(name), "command %q should be registered", name)
	}

	assert.NotNil(t, cmds.Status)
	assert.NotNil(t, cmds.Sessions)
	assert.NotNil(t, cmds.Show)
	assert.NotNil(t, cmds.Watch)
	assert.NotNil(t, cmds.Reset)
}

func TestUnknownCommandErrors(t *testing.T) {
	parser, _, _ := buildParser("test")
	_, err := parser.ParseArgs([]string{"frobnicate"})
	assert.Error(t, err)
}

func TestCommandsShareGlobals(t *testing.T) {
	_, globals, cmds := buildParser("test")
	assert.Same(t, globals, cmds.Status.globals)
	assert.Same(t, globals, cmds.Sessions.globals)
	assert.Same(t, globals, cmds.Reset.globals)
}
