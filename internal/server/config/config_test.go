package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("", newFlagSet(t))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Bind)
	assert.Equal(t, "/var/www/html/myip.txt", cfg.Server.IPFile)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
}

func TestLoadConfigFromFlags(t *testing.T) {
	fs := newFlagSet(t,
		"--port", "9090",
		"--bind", "127.0.0.1",
		"--ip-file", "/tmp/ip.txt")

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Address())
	assert.Equal(t, "/tmp/ip.txt", cfg.Server.IPFile)
}

func TestLoadConfigRejectsBadPort(t *testing.T) {
	_, err := LoadConfig("", newFlagSet(t, "--port", "70000"))
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadBind(t *testing.T) {
	_, err := LoadConfig("", newFlagSet(t, "--bind", "not-an-address"))
	assert.Error(t, err)
}
