package config

import (
	"regexp"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"9000" validate:"min=1000,max=65535"`

	// AllowedOrigins is matched against the Origin header of websocket
	// upgrade requests.
	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:".*"`

	IceConfigPath string `env:"ICE_CONFIG_PATH" envDefault:"iceservers.json"`

	BcryptCost int `env:"BCRYPT_COST" envDefault:"10" validate:"min=4,max=31"`

	ShutdownGraceSeconds int `env:"SHUTDOWN_GRACE_SECONDS" envDefault:"10" validate:"min=1,max=300"`
}

// OriginPattern compiles the allowed-origin expression.
func (c *Config) OriginPattern() (*regexp.Regexp, error) {
	return regexp.Compile(c.AllowedOrigins)
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	// Parse config from environment variables
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}

	// A broken origin pattern should fail startup, not the first upgrade.
	if _, err = cfg.OriginPattern(); err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
