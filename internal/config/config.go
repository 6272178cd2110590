package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del front-end.
type Config struct {
	HTTPPort             string `env:"HTTP_PORT" envDefault:"8080"`
	AssessmentBaseURL    string `env:"ASSESSMENT_BASE_URL,required"`
	DatabaseURL          string `env:"DATABASE_URL"`
	RedisAddr            string `env:"REDIS_ADDR"`
	RedisPassword        string `env:"REDIS_PASSWORD"`
	RedisDB              int    `env:"REDIS_DB" envDefault:"0"`
	JWTSecret            string `env:"JWT_SECRET"`
	JWTSessionTTLMinutes int    `env:"JWT_SESSION_TTL_MINUTES" envDefault:"720"`
	StateCacheTTLHours   int    `env:"STATE_CACHE_TTL_HOURS" envDefault:"24"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
