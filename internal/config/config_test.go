package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rpiburn", "config.json")
	t.Setenv("RPIBURN_CONFIG", path)
	t.Setenv("RPIBURN_LOG_LEVEL", "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	config = nil
	ConfigFile = ""
	return path
}

func TestInitConfigDefaults(t *testing.T) {
	path := useTempConfig(t)

	require.NoError(t, InitConfig())
	assert.Equal(t, path, ConfigFile)
	assert.Equal(t, &Config{Eject: true, ShowProgress: true, LogLevel: "warn"}, GetConfig())
	assert.NoFileExists(t, path)
}

func TestSetAndReload(t *testing.T) {
	path := useTempConfig(t)
	require.NoError(t, InitConfig())

	require.NoError(t, Set("eject", "false"))
	require.NoError(t, Set("log_level", "DEBUG"))
	require.NoError(t, Set("user_data", "/tmp/user-data.yaml"))
	assert.FileExists(t, path)

	config = nil
	require.NoError(t, InitConfig())
	c := GetConfig()
	assert.False(t, c.Eject)
	assert.True(t, c.ShowProgress)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "/tmp/user-data.yaml", c.UserData)

	v, err := Get("eject")
	require.NoError(t, err)
	assert.Equal(t, "false", v)
}

func TestSetRejectsBadValues(t *testing.T) {
	useTempConfig(t)
	require.NoError(t, InitConfig())

	assert.Error(t, Set("eject", "sometimes"))
	assert.Error(t, Set("log_level", "trace"))
	assert.Error(t, Set("colour", "blue"))
	_, err := Get("colour")
	assert.Error(t, err)
}

func TestInitConfigCorrupt(t *testing.T) {
	path := useTempConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	require.Error(t, InitConfig())
}

func TestInitConfigDotEnv(t *testing.T) {
	useTempConfig(t)
	require.NoError(t, os.WriteFile(".env", []byte("RPIBURN_LOG_LEVEL=error\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("RPIBURN_LOG_LEVEL") })
	os.Unsetenv("RPIBURN_LOG_LEVEL")

	require.NoError(t, InitConfig())
	assert.Equal(t, "error", GetConfig().LogLevel)
}
