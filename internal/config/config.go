// Package config предоставляет структуры и функцию для парсинга и загрузки конфига.
package config

import (
	"log"
	"os"
	"time"

	"github.com/go-playground/validator"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек бота.
type Config struct {
	Env                     string `yaml:"env" validate:"required"`
	StorageConnectionString string `yaml:"storage_connection_string" validate:"required"`
	RabbitConnectionString  string `yaml:"rabbit_connection_string"`
	RedisConnection         `yaml:"redis_connection"`
	Telegram                `yaml:"telegram"`
	Onboarding              `yaml:"onboarding"`
	OpsServer               `yaml:"ops_server"`
}

// Telegram структура для подключения к Bot API.
type Telegram struct {
	Token         string `yaml:"token" env:"TELEGRAM_BOT_TOKEN" validate:"required"`
	UpdateTimeout int    `yaml:"update_timeout" env-default:"30"`
}

// Onboarding структура с настройками онбординга и гейта подписки на канал.
type Onboarding struct {
	RequiredChannelID     int64   `yaml:"required_channel_id"`
	RequiredChannelLink   string  `yaml:"required_channel_link"`
	AdminIDs              []int64 `yaml:"admin_ids"`
	LegacyRefs            bool    `yaml:"legacy_refs"`
	DisableWelcomeMessage bool    `yaml:"disable_welcome_message"`
	DefaultLanguage       string  `yaml:"default_language" env-default:"ru" validate:"required"`
	LocalesPath           string  `yaml:"locales_path" env-default:"locales"`
	MenuImagePath         string  `yaml:"menu_image_path" env-default:"static/mainmenu.png"`
	TrialEnabled          bool    `yaml:"trial_enabled"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// OpsServer структура для служебного HTTP-сервера (health, metrics).
type OpsServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8081"`
	Timeout     time.Duration `yaml:"timeout" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// MustLoad загружает конфиг из файла, указанного в CONFIG_PATH,
// валидирует обязательные поля и завершает процесс при любой ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		log.Fatalf("invalid config: %s", err)
	}
	return &cfg
}

// IsAdmin сообщает, входит ли пользователь в список администраторов.
func (o Onboarding) IsAdmin(userID int64) bool {
	for _, id := range o.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
