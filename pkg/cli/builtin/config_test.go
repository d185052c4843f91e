package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigShow(t *testing.T) {
	s := newShell(t)
	s.env.Config.Connect.Password = "Administrator"

	require.NoError(t, s.run("config"))

	var shown map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(s.output()), &shown))
	connect, ok := shown["connect"].(map[string]any)
	require.True(t, ok, s.output())
	assert.Equal(t, "***", connect["password"])
	assert.Equal(t, "Administrator", connect["username"])
	assert.NotContains(t, s.output(), "password: Administrator")

	// The running configuration is left alone.
	assert.Equal(t, "Administrator", s.env.Config.Connect.Password)
}

func TestConfigGet(t *testing.T) {
	s := newShell(t)
	s.env.Config.Connect.Password = "secret"

	tests := []struct {
		key  string
		want string
	}{
		{"output.format", "pretty\n"},
		{"history.size", "100\n"},
		{"keyring.enabled", "false\n"},
		{"connect.password", "***\n"},
		{"output.schemas", "- dublincore\n"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			require.NoError(t, s.run("config get "+tt.key))
			assert.Equal(t, tt.want, s.output())
		})
	}

	require.NoError(t, s.run("config get log"))
	assert.Equal(t, "level: info\n", s.output())
}

func TestConfigErrors(t *testing.T) {
	s := newShell(t)

	for line, msg := range map[string]string{
		"config get":             "missing key",
		"config get nope":        `unknown key "nope"`,
		"config get log.level.x": `unknown key "log.level.x"`,
		"config frobnicate":      `unknown subcommand "frobnicate"`,
	} {
		require.Error(t, s.run(line), line)
		assert.Contains(t, s.output(), msg, line)
	}
}

func TestConfigPath(t *testing.T) {
	s := newShell(t)
	require.NoError(t, s.run("config path"))
	assert.Equal(t, "no config file\n", s.output())

	s = newShellWith(t, &Options{ConfigPath: "/home/me/.config/nxshell/config.yaml"})
	require.NoError(t, s.run("config path"))
	assert.Equal(t, "/home/me/.config/nxshell/config.yaml\n", s.output())
}
