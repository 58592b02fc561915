package config

import "github.com/caarlos0/env/v11"

type Config struct {
	Addr             string `env:"ADDR"              envDefault:":8080"`
	DBPath           string `env:"DB_PATH"           envDefault:"feedtune.sqlite"`
	YouTubeAPIKey    string `env:"YOUTUBE_API_KEY"`
	CronSecret       string `env:"CRON_SECRET"`
	BootstrapToken   string `env:"BOOTSTRAP_TOKEN"`
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	RefreshCronSpec  string `env:"REFRESH_CRON_SPEC" envDefault:"0 * * * *"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
