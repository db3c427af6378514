package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/wfunc/mrxserver/models"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	HTTPAddress      string        `mapstructure:"http_address"`
	RPCAddress       string        `mapstructure:"rpc_address"`
	MetricsNamespace string        `mapstructure:"metrics_namespace"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DatabaseConfig 选择对局记录的存储方式: memory / gorm / postgres
type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// DSN 返回 key=value 形式的连接串，gorm 与 lib/pq 都能识别
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		p.Host, p.Port, p.User, p.Password, p.DBName)
}

type GameConfig struct {
	MaxPlayers         int                       `mapstructure:"max_players"`
	MaxTurns           int                       `mapstructure:"max_turns"`
	RevealTurns        []int                     `mapstructure:"reveal_turns"`
	TurnTimeLimit      time.Duration             `mapstructure:"turn_time_limit"`
	DisconnectPolicy   string                    `mapstructure:"disconnect_policy"`
	RedactHiddenPlayer bool                      `mapstructure:"redact_hidden_player"`
	MapFile            string                    `mapstructure:"map_file"`
	Tickets            map[string]map[string]int `mapstructure:"tickets"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":9090")
	v.SetDefault("server.metrics_namespace", "mrx")
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "mrx")

	rules := models.DefaultRules()
	v.SetDefault("game.max_players", rules.MaxPlayers)
	v.SetDefault("game.max_turns", rules.MaxTurns)
	v.SetDefault("game.reveal_turns", rules.RevealTurns)
	v.SetDefault("game.turn_time_limit", 0)
	v.SetDefault("game.disconnect_policy", string(rules.DisconnectPolicy))
	v.SetDefault("game.redact_hidden_player", false)
	v.SetDefault("game.map_file", "")
	v.SetDefault("game.tickets.mrx", ticketDefaults(rules.MrXTickets))
	v.SetDefault("game.tickets.detective", ticketDefaults(rules.DetectiveTickets))
}

func ticketDefaults(t models.Tickets) map[string]int {
	out := make(map[string]int, len(t))
	for k, n := range t {
		out[string(k)] = n
	}
	return out
}

// LoadConfig 读取 path 下的 config.yaml。文件不存在时全部使用默认值；
// 环境变量（先从 .env 载入）覆盖文件，例如 SERVER_HTTP_ADDRESS。
func LoadConfig(path string) (*Config, error) {
	// .env 可选
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if _, err := cfg.Rules(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Rules converts the game section into the rule set rooms are created with.
func (c *Config) Rules() (models.Rules, error) {
	g := c.Game
	rules := models.DefaultRules()

	if g.MaxPlayers < 2 {
		return rules, fmt.Errorf("game.max_players must be at least 2, got %d", g.MaxPlayers)
	}
	if g.MaxTurns < 1 {
		return rules, fmt.Errorf("game.max_turns must be positive, got %d", g.MaxTurns)
	}
	rules.MaxPlayers = g.MaxPlayers
	rules.MaxTurns = g.MaxTurns
	rules.RevealTurns = append([]int(nil), g.RevealTurns...)
	rules.RedactHiddenPlayer = g.RedactHiddenPlayer

	switch p := models.DisconnectPolicy(g.DisconnectPolicy); p {
	case models.DisconnectSkip, models.DisconnectEnd:
		rules.DisconnectPolicy = p
	default:
		return rules, fmt.Errorf("game.disconnect_policy must be skip or end, got %q", g.DisconnectPolicy)
	}

	var err error
	if rules.MrXTickets, err = parseTickets(g.Tickets["mrx"], rules.MrXTickets); err != nil {
		return rules, fmt.Errorf("game.tickets.mrx: %w", err)
	}
	if rules.DetectiveTickets, err = parseTickets(g.Tickets["detective"], rules.DetectiveTickets); err != nil {
		return rules, fmt.Errorf("game.tickets.detective: %w", err)
	}
	return rules, nil
}

// parseTickets overlays raw onto def; transports missing from raw keep their default.
func parseTickets(raw map[string]int, def models.Tickets) (models.Tickets, error) {
	out := def.Clone()
	for k, n := range raw {
		t := models.TransportType(k)
		if !t.Valid() {
			return nil, fmt.Errorf("unknown transport %q", k)
		}
		if n < 0 {
			return nil, fmt.Errorf("%s count must not be negative", k)
		}
		out[t] = n
	}
	return out, nil
}
