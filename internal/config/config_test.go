package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	s, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, 1.0, s.Mix)
	assert.Equal(t, 1024, s.Engine.PartitionSize)
	assert.True(t, s.Engine.Trim)
	assert.True(t, s.Engine.Normalize)
	assert.Equal(t, 48000.0, s.Audio.SampleRate)
	assert.Equal(t, 512, s.Audio.BlockSize)
	assert.Equal(t, 2, s.Audio.Channels)
	assert.Equal(t, 24, s.Render.BitDepth)
	assert.Equal(t, "info", s.Log.Level)
}

func TestYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "irplayer.yaml")
	yaml := "ir: hall.wav\nmix: 0.4\nengine:\n  partition_size: 256\n  trim: false\nrender:\n  tail: true\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	s, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "hall.wav", s.IR)
	assert.Equal(t, 0.4, s.Mix)
	assert.Equal(t, 256, s.Engine.PartitionSize)
	assert.False(t, s.Engine.Trim)
	assert.True(t, s.Engine.Normalize)
	assert.True(t, s.Render.Tail)
	require.NoError(t, s.Validate())
}

func TestMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("IRPLAYER_MIX", "0.25")
	t.Setenv("IRPLAYER_ENGINE_PARTITION_SIZE", "512")

	s, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, 0.25, s.Mix)
	assert.Equal(t, 512, s.Engine.PartitionSize)
}

func TestFlagsTakePrecedence(t *testing.T) {
	t.Setenv("IRPLAYER_MIX", "0.25")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Float64("mix", 1, "")
	flags.Int("partition-size", 1024, "")
	require.NoError(t, flags.Parse([]string{"--mix=0.75", "--partition-size=128"}))

	v := New()
	require.NoError(t, BindFlags(v, flags, map[string]string{"partition-size": "engine.partition_size"}))

	s, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, 0.75, s.Mix)
	assert.Equal(t, 128, s.Engine.PartitionSize)
}

func TestValidate(t *testing.T) {
	valid := func() *Settings {
		s, err := Load(New(), "")
		require.NoError(t, err)
		s.IR = "hall.wav"
		return s
	}

	require.NoError(t, valid().Validate())

	s := valid()
	s.IR = ""
	assert.ErrorIs(t, s.Validate(), ErrMissingIR)

	s = valid()
	s.Mix = 1.5
	assert.ErrorIs(t, s.Validate(), ErrInvalidMix)

	s = valid()
	s.Engine.PartitionSize = 1000
	assert.ErrorIs(t, s.Validate(), ErrInvalidFormat)

	s = valid()
	s.Log.Format = "xml"
	assert.ErrorIs(t, s.Validate(), ErrInvalidFormat)
}

func TestConfigureLogging(t *testing.T) {
	prevLevel, prevFormatter := logrus.GetLevel(), logrus.StandardLogger().Formatter
	t.Cleanup(func() {
		logrus.SetLevel(prevLevel)
		logrus.SetFormatter(prevFormatter)
	})

	s := &Settings{Log: LogSettings{Level: "debug", Format: "json"}}
	require.NoError(t, s.ConfigureLogging())
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	s.Log.Level = "loud"
	assert.Error(t, s.ConfigureLogging())
}
