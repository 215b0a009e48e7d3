package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	t.Setenv("SPELLDUEL_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Simulation.TickRate)
	assert.Equal(t, "revenge_fairy", cfg.Combat.Revenge.Archetype)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	data := []byte(`
simulation:
  tick_rate: 30
combat:
  chain_delay_seconds: 0.5
  revenge:
    enabled: true
    archetype: ghost
    max_per_side: 3
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Simulation.TickRate)
	assert.Equal(t, 0.5, cfg.Combat.ChainDelaySeconds)
	assert.Equal(t, "ghost", cfg.Combat.Revenge.Archetype)
	assert.Equal(t, 3, cfg.Combat.Revenge.MaxPerSide)
	// Не указанные поля остаются по умолчанию
	assert.Equal(t, 1.5, cfg.Combat.ChainEffectRadius)
	assert.Equal(t, time.Second/30, cfg.Simulation.TickInterval())
}

func TestLoad_RejectsInvalidChance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("combat:\n  waves:\n    great_first_chance: 2\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDebugConfig_EnvFallback(t *testing.T) {
	t.Setenv("SPELLDUEL_DEBUG_PORT", "9191")

	d := DebugConfig{}
	assert.Equal(t, 9191, d.GetPort())

	d.Port = 7000
	assert.Equal(t, 7000, d.GetPort())
}
