package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type BotConfig struct {
	DiscordToken        string        `yaml:"discord_token"`
	GuildID             string        `yaml:"guild_id"`
	LOARoleID           string        `yaml:"loa_role_id"`
	ManagerRoleIDs      []string      `yaml:"manager_role_ids"`
	LogChannelID        string        `yaml:"log_channel_id"`
	CommandPrefix       string        `yaml:"command_prefix"`
	DatabaseURL         string        `yaml:"database_url"`
	SweepInterval       time.Duration `yaml:"sweep_interval"`
	PlatformTimeout     time.Duration `yaml:"platform_timeout"`
	ListRequiresManager bool          `yaml:"list_requires_manager"`
	StoreTimezone       string        `yaml:"store_timezone"`
	LogLevel            string        `yaml:"log_level"`
	HTTPAddr            string        `yaml:"http_addr"`
	CORSAllowedOrigins  []string      `yaml:"cors_allowed_origins"`
	TelegramToken       string        `yaml:"telegram_token"`
	TelegramLogChatID   int64         `yaml:"telegram_log_chat_id"`
}

var instance *BotConfig
var once sync.Once

// GetBotConfig loads the configuration from the command line and the
// environment once per process.
func GetBotConfig() *BotConfig {
	once.Do(func() {
		cfg, err := Load(os.Args[1:])
		if err != nil {
			logrus.Fatalf("error loading config: %s", err.Error())
		}
		instance = cfg
	})

	return instance
}

func Default() *BotConfig {
	return &BotConfig{
		CommandPrefix:   "!",
		DatabaseURL:     "loa_database.db",
		SweepInterval:   time.Minute,
		PlatformTimeout: 10 * time.Second,
		StoreTimezone:   "Local",
		LogLevel:        "info",
	}
}

// Load builds the configuration from, in increasing priority: defaults, the
// YAML file named by --config or LOA_CONFIG_FILE, the .env file, the process
// environment and command-line flags.
func Load(args []string) (*BotConfig, error) {
	flags := pflag.NewFlagSet("loa-bot", pflag.ContinueOnError)
	configFile := flags.String("config", "", "path to a YAML config file")
	envFile := flags.String("env-file", ".env", "path to a .env file")
	dbPath := flags.String("db", "", "sqlite database path")
	httpAddr := flags.String("http-addr", "", "listen address of the status API, empty to disable")
	logLevel := flags.String("log-level", "", "log level")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if err := godotenv.Load(*envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", *envFile, err)
		}
		logrus.Debugf("no env file at %s", *envFile)
	}

	cfg := Default()

	path := *configFile
	if path == "" {
		path = getEnv("LOA_CONFIG_FILE", "")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if flags.Changed("db") {
		cfg.DatabaseURL = *dbPath
	}
	if flags.Changed("http-addr") {
		cfg.HTTPAddr = *httpAddr
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *BotConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *BotConfig) loadEnv() error {
	c.DiscordToken = getEnv("DISCORD_BOT_TOKEN", c.DiscordToken)
	c.GuildID = getEnv("GUILD_ID", c.GuildID)
	c.LOARoleID = getEnv("LOA_ROLE_ID", c.LOARoleID)
	c.ManagerRoleIDs = getEnvAsList("MANAGER_ROLE_IDS", c.ManagerRoleIDs)
	c.LogChannelID = getEnv("LOG_CHANNEL_ID", c.LogChannelID)
	c.CommandPrefix = getEnv("COMMAND_PREFIX", c.CommandPrefix)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.ListRequiresManager = getEnvAsBool("LIST_REQUIRES_MANAGER", c.ListRequiresManager)
	c.StoreTimezone = getEnv("STORE_TIMEZONE", c.StoreTimezone)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.CORSAllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", c.CORSAllowedOrigins)
	c.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", c.TelegramToken)
	c.TelegramLogChatID = getEnvAsInt("TELEGRAM_LOG_CHAT_ID", c.TelegramLogChatID)

	var err error
	if c.SweepInterval, err = getEnvAsDuration("SWEEP_INTERVAL", c.SweepInterval); err != nil {
		return err
	}
	if c.PlatformTimeout, err = getEnvAsDuration("PLATFORM_TIMEOUT", c.PlatformTimeout); err != nil {
		return err
	}
	return nil
}

// Validate reports every missing or invalid required setting at once.
func (c *BotConfig) Validate() error {
	var errs []error
	if c.DiscordToken == "" {
		errs = append(errs, errors.New("could not get bot token (DISCORD_BOT_TOKEN)"))
	}
	if c.GuildID == "" {
		errs = append(errs, errors.New("could not get guild id (GUILD_ID)"))
	}
	if c.LOARoleID == "" {
		errs = append(errs, errors.New("could not get LOA role id (LOA_ROLE_ID)"))
	}
	if c.CommandPrefix == "" {
		errs = append(errs, errors.New("command prefix must not be empty"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("sweep interval must be positive, got %v", c.SweepInterval))
	}
	if c.PlatformTimeout <= 0 {
		errs = append(errs, fmt.Errorf("platform timeout must be positive, got %v", c.PlatformTimeout))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if (c.TelegramToken == "") != (c.TelegramLogChatID == 0) {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN and TELEGRAM_LOG_CHAT_ID must be set together"))
	}
	return errors.Join(errs...)
}

// Location is the time zone leave timestamps are stored in.
func (c *BotConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.StoreTimezone)
	if err != nil {
		return nil, fmt.Errorf("store timezone %q: %w", c.StoreTimezone, err)
	}
	return loc, nil
}

func (c *BotConfig) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramLogChatID != 0
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsInt(name string, defaultVal int64) int64 {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseInt(valStr, 10, 64); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsDuration(name string, defaultVal time.Duration) (time.Duration, error) {
	valStr := getEnv(name, "")
	if valStr == "" {
		return defaultVal, nil
	}
	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return val, nil
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(name string, defaultVal []string) []string {
	valStr, exists := os.LookupEnv(name)
	if !exists {
		return defaultVal
	}

	var out []string
	for _, part := range strings.Split(valStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
