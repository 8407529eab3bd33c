package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath é o arquivo de configuração procurado quando nenhum caminho é informado
const DefaultPath = "config.yaml"

// Config representa a configuração completa da aplicação
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Feed       FeedConfig       `yaml:"feed"`
	Replay     ReplayConfig     `yaml:"replay"`
	Course     CourseConfig     `yaml:"course"`
	Units      UnitsConfig      `yaml:"units"`
	Simulation SimulationConfig `yaml:"simulation"`
	Discovery  DiscoveryConfig  `yaml:"discovery"`
	LogLevel   string           `yaml:"logLevel" validate:"omitempty,oneof=debug info warn error"`
}

// ServerConfig contém configurações do servidor HTTP/WebSocket
type ServerConfig struct {
	Port            int           `yaml:"port" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"readTimeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"gte=0"`
	StaticDir       string        `yaml:"staticDir"`
}

// RedisConfig contém configurações do Redis que hospeda os registros de salas e dispositivos
type RedisConfig struct {
	Host     string `yaml:"host" validate:"required_if=Enabled true"`
	Port     int    `yaml:"port" validate:"gte=0,lte=65535"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Prefix   string `yaml:"prefix" validate:"required"`
	Enabled  bool   `yaml:"enabled"`
}

// FeedConfig controla as assinaturas dos feeds de salas e dispositivos
type FeedConfig struct {
	// Disabled desliga os dois feeds (modo teste/offline)
	Disabled bool `yaml:"disabled"`
	// RoomID seleciona uma sala explicitamente; vazio = última sala criada
	RoomID string `yaml:"roomId"`
	// StaleAfter: sem snapshot de dispositivos por mais que isso, o feed é
	// marcado como desatualizado
	StaleAfter time.Duration `yaml:"staleAfter" validate:"gte=0"`
}

// ReplayConfig contém configurações do buffer de histórico e da reprodução
type ReplayConfig struct {
	MaxFrames    int           `yaml:"maxFrames" validate:"gt=0"`
	TickInterval time.Duration `yaml:"tickInterval" validate:"gt=0"`
	Loop         bool          `yaml:"loop"`
}

// CourseConfig contém configurações do percurso
type CourseConfig struct {
	// Laps deve acompanhar course.MaxLaps
	Laps int `yaml:"laps" validate:"gte=1,lte=20"`
}

// UnitsConfig contém configurações das unidades rastreadas
type UnitsConfig struct {
	OfflineAfter time.Duration `yaml:"offlineAfter" validate:"gt=0"`
}

// SimulationConfig contém configurações do simulador offline
type SimulationConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Boats      int           `yaml:"boats" validate:"gte=0,lte=50"`
	SampleRate time.Duration `yaml:"sampleRate" validate:"gt=0"`
	WindDir    float64       `yaml:"windDirection" validate:"gte=0,lt=360"`
	LegLength  float64       `yaml:"legLength" validate:"gt=0"`
	// Target: "local" injeta direto no sincronizador, "redis" escreve no feed
	Target string `yaml:"target" validate:"oneof=local redis"`
}

// DiscoveryConfig contém configurações do anúncio mDNS
type DiscoveryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load carrega a configuração padrão, sobrescreve com o arquivo (se existir)
// e com variáveis de ambiente, e valida o resultado
func Load(path string) (*Config, error) {
	cfg := getDefaultConfig()

	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("erro ao interpretar %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Sem arquivo: usar padrões
	default:
		return nil, fmt.Errorf("erro ao ler %s: %w", path, err)
	}

	applyEnvironmentOverrides(&cfg, os.LookupEnv)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate verifica as restrições declaradas nas tags da configuração
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("configuração inválida: %w", err)
	}
	return nil
}

// applyEnvironmentOverrides sobrescreve configurações com variáveis REGATA_*
func applyEnvironmentOverrides(cfg *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}

	num("REGATA_SERVER_PORT", &cfg.Server.Port)
	str("REGATA_REDIS_HOST", &cfg.Redis.Host)
	num("REGATA_REDIS_PORT", &cfg.Redis.Port)
	str("REGATA_REDIS_PASSWORD", &cfg.Redis.Password)
	str("REGATA_REDIS_PREFIX", &cfg.Redis.Prefix)
	flag("REGATA_REDIS_ENABLED", &cfg.Redis.Enabled)
	flag("REGATA_TEST_MODE", &cfg.Feed.Disabled)
	str("REGATA_ROOM", &cfg.Feed.RoomID)
	num("REGATA_LAPS", &cfg.Course.Laps)
	flag("REGATA_SIMULATION", &cfg.Simulation.Enabled)
	str("REGATA_LOG_LEVEL", &cfg.LogLevel)
}
