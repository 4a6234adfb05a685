package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigValue(t *testing.T) {
	tests := []struct {
		name         string
		flagValue    string
		envKey       string
		envValue     string
		defaultValue string
		want         string
	}{
		{
			name:         "flag wins over env and default",
			flagValue:    "from-flag",
			envKey:       "TEST_CONFIG_KEY",
			envValue:     "from-env",
			defaultValue: "from-default",
			want:         "from-flag",
		},
		{
			name:         "env wins over default",
			flagValue:    "",
			envKey:       "TEST_CONFIG_KEY",
			envValue:     "from-env",
			defaultValue: "from-default",
			want:         "from-env",
		},
		{
			name:         "default when nothing set",
			flagValue:    "",
			envKey:       "TEST_CONFIG_KEY",
			envValue:     "",
			defaultValue: "from-default",
			want:         "from-default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.envKey, tt.envValue)
			}
			got := getConfigValue(tt.flagValue, tt.envKey, tt.defaultValue)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetBoolConfigValue(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"false", false},
		{"0", false},
		{"nonsense", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, getBoolConfigValue(tt.value, "UNSET_KEY", false))
		})
	}

	t.Run("default when unset", func(t *testing.T) {
		assert.True(t, getBoolConfigValue("", "UNSET_KEY", true))
	})
}

func TestParseDurationValue(t *testing.T) {
	d, err := parseDurationValue("", "UNSET_DURATION", "15s")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, d)

	t.Setenv("TEST_DURATION", "2m")
	d, err = parseDurationValue("", "TEST_DURATION", "15s")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, d)

	t.Setenv("TEST_BAD_DURATION", "not-a-duration")
	_, err = parseDurationValue("", "TEST_BAD_DURATION", "15s")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:    AppConfig{Environment: "development"},
			Logger: LoggerConfig{Level: "info"},
			Store: StoreConfig{
				LibgenMirrors:          []string{"https://libgen.is"},
				DbooksFailureThreshold: 3,
				LibgenFailureThreshold: 5,
			},
			Download: DownloadConfig{Dir: "/tmp/downloads"},
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("bad environment", func(t *testing.T) {
		cfg := valid()
		cfg.App.Environment = "testing"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := valid()
		cfg.Logger.Level = "verbose"
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty mirror pool", func(t *testing.T) {
		cfg := valid()
		cfg.Store.LibgenMirrors = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero failure threshold", func(t *testing.T) {
		cfg := valid()
		cfg.Store.DbooksFailureThreshold = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty download dir", func(t *testing.T) {
		cfg := valid()
		cfg.Download.Dir = ""
		assert.Error(t, cfg.Validate())
	})
}

func TestExpandPath(t *testing.T) {
	got, err := expandPath("", "/default/path")
	require.NoError(t, err)
	assert.Equal(t, "/default/path", got)

	got, err = expandPath("/absolute/path", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/absolute/path", got)
}
