package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Nil(t, cfg.Study.Participant)
	assert.Nil(t, cfg.Timing.Cooldown)
}

func TestLoadConfigEmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[study]
participant = 4
modality = 2
library = "/data/gestures.yaml"
fps = 90

[timing]
cooldown = 1.5
anim-delay = 2
max-repetitions = 5
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Study.Participant)
	assert.Equal(t, 4, *cfg.Study.Participant)
	assert.Equal(t, 2, *cfg.Study.Modality)
	assert.Equal(t, "/data/gestures.yaml", *cfg.Study.Library)
	assert.Equal(t, 90, *cfg.Study.FPS)
	assert.Nil(t, cfg.Study.Story)

	require.NotNil(t, cfg.Timing.Cooldown)
	assert.Equal(t, 1500*time.Millisecond, Seconds(*cfg.Timing.Cooldown))
	assert.Equal(t, 2*time.Second, Seconds(*cfg.Timing.AnimDelay))
	assert.Equal(t, 5, *cfg.Timing.MaxRepetitions)
	assert.Nil(t, cfg.Timing.StaticTimeout)
}

func TestLoadConfigDecodeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[study\nparticipant = "), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestDefaultPathsFollowXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	assert.Equal(t, "/cfg/gesturelab/config.toml", DefaultConfigPath())
	assert.Equal(t, "/cfg/gesturelab/gestures.yaml", DefaultLibraryPath())
	assert.Equal(t, "/cfg/gesturelab/story.json", DefaultStoryPath())
	assert.Equal(t, "/data/gesturelab/gesturelab.db", DefaultDBPath())
}
