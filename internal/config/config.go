package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации боевого сервера.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Combat     CombatConfig     `yaml:"combat"`
	Assets     AssetsConfig     `yaml:"assets"`
	Logging    LoggingConfig    `yaml:"logging"`
	EventBus   EventBusConfig   `yaml:"eventbus"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	Replay     ReplayConfig     `yaml:"replay"`
	Debug      DebugConfig      `yaml:"debug"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

type SimulationConfig struct {
	TickRate           int   `yaml:"tick_rate"`
	Seed               int64 `yaml:"seed"`
	SnapshotEveryTicks int   `yaml:"snapshot_every_ticks"`
}

// CombatConfig параметры боевого ядра
type CombatConfig struct {
	ChainDelaySeconds float64       `yaml:"chain_delay_seconds"`
	ChainEffectRadius float64       `yaml:"chain_effect_radius"`
	Revenge           RevengeConfig `yaml:"revenge"`
	Arena             ArenaConfig   `yaml:"arena"`
	Waves             WavePolicy    `yaml:"waves"`
}

// RevengeConfig ответный спавн на стороне соперника
type RevengeConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Archetype  string  `yaml:"archetype"`
	MaxPerSide int     `yaml:"max_per_side"` // 0 = без ограничения
	Speed      float64 `yaml:"speed"`        // Прицельный выстрел в цель новой стороны
}

// ArenaConfig расположение арен сторон. Арена SideA в начале координат.
type ArenaConfig struct {
	SideBOffsetX float64 `yaml:"side_b_offset_x"`
	SideBOffsetY float64 `yaml:"side_b_offset_y"`
}

// WavePolicy вероятности "great"-вариантов первого/последнего в линии.
// Розыгрыши независимы, оба могут выпасть в одной волне.
type WavePolicy struct {
	GreatFirstChance float64 `yaml:"great_first_chance"`
	GreatLastChance  float64 `yaml:"great_last_chance"`
	// Разрешать ли extra-attack флаг на great-сущности
	TriggerMayBeGreat bool `yaml:"trigger_may_be_great"`
}

type AssetsConfig struct {
	ArchetypesFile string `yaml:"archetypes_file"`
	SpellcardsFile string `yaml:"spellcards_file"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
}

// EventBusConfig пустой URL означает in-memory шину
type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

// SnapshotConfig пустой адрес Redis означает хранение в памяти
type SnapshotConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix"`
	TTLSeconds    int    `yaml:"ttl_seconds"`
}

// ReplayConfig пустой Dir означает in-memory BadgerDB
type ReplayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type DebugConfig struct {
	Port int `yaml:"port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			TickRate:           60,
			Seed:               0,
			SnapshotEveryTicks: 6,
		},
		Combat: CombatConfig{
			ChainDelaySeconds: 0.2,
			ChainEffectRadius: 1.5,
			Revenge: RevengeConfig{
				Enabled:    true,
				Archetype:  "revenge_fairy",
				MaxPerSide: 8,
				Speed:      3,
			},
			Arena: ArenaConfig{SideBOffsetX: 40},
			Waves: WavePolicy{
				GreatFirstChance: 0.1,
				GreatLastChance:  0.1,
			},
		},
		Assets: AssetsConfig{
			ArchetypesFile: "assets/archetypes.yaml",
			SpellcardsFile: "assets/spellcards.yaml",
		},
		Logging: LoggingConfig{
			Dir:          "logs",
			ConsoleLevel: "INFO",
			FileLevel:    "DEBUG",
		},
		EventBus: EventBusConfig{Stream: "COMBAT", Retention: 24, Buffer: 1024},
		Snapshot: SnapshotConfig{KeyPrefix: "spellduel:snapshot:", TTLSeconds: 30},
		Replay:   ReplayConfig{Enabled: true},
		Telemetry: TelemetryConfig{
			ServiceName: "spellduel",
		},
	}
}

// TickInterval длительность одного тика симуляции
func (s *SimulationConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(s.GetTickRate())
}

// GetTickRate возвращает частоту тиков с fallback значениями
func (s *SimulationConfig) GetTickRate() int {
	return getIntWithEnvFallback(s.TickRate, "SPELLDUEL_TICK_RATE", 60)
}

// GetPort возвращает порт debug HTTP с поддержкой fallback значений
func (d *DebugConfig) GetPort() int {
	return getIntWithEnvFallback(d.Port, "SPELLDUEL_DEBUG_PORT", 8089)
}

// GetRedisAddr адрес Redis: config -> env -> пусто (in-memory)
func (s *SnapshotConfig) GetRedisAddr() string {
	if s.RedisAddr != "" {
		return s.RedisAddr
	}
	return os.Getenv("SPELLDUEL_REDIS_ADDR")
}

// GetURL адрес NATS: config -> env -> пусто (in-memory)
func (e *EventBusConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	return os.Getenv("SPELLDUEL_NATS_URL")
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	if configValue > 0 {
		return configValue
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}

	return defaultValue
}

// Load читает YAML файл конфигурации поверх Default().
// Если path == "", пытается прочитать из ENV SPELLDUEL_CONFIG, иначе возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("SPELLDUEL_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения, которые нельзя молча исправить
func (c *Config) Validate() error {
	if c.Combat.ChainDelaySeconds < 0 {
		return fmt.Errorf("combat.chain_delay_seconds не может быть отрицательным: %v", c.Combat.ChainDelaySeconds)
	}
	if c.Combat.Revenge.MaxPerSide < 0 {
		return fmt.Errorf("combat.revenge.max_per_side не может быть отрицательным: %d", c.Combat.Revenge.MaxPerSide)
	}
	for name, p := range map[string]float64{
		"great_first_chance": c.Combat.Waves.GreatFirstChance,
		"great_last_chance":  c.Combat.Waves.GreatLastChance,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("combat.waves.%s вне диапазона [0,1]: %v", name, p)
		}
	}
	return nil
}
