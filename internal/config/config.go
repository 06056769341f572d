// Package config has a configuration structure
package config

import "time"

// Config contains configuration data
type Config struct {
	HostHTTP string `env:"HOST_HTTP" envDefault:"0.0.0.0"`
	PortHTTP int    `env:"PORT_HTTP" envDefault:"8080"`

	FeedURL         string        `env:"FEED_URL" envDefault:"https://min-api.cryptocompare.com"`
	FeedAPIKey      string        `env:"FEED_API_KEY"`
	SymbolLimit     int           `env:"SYMBOL_LIMIT" envDefault:"10"`
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"3s"`
	ErrorTTL        time.Duration `env:"ERROR_TTL" envDefault:"5s"`

	BaseCurrency string  `env:"BASE_CURRENCY" envDefault:"USD"`
	StartingCash float64 `env:"STARTING_CASH" envDefault:"1000000"`
	AutoLaunch   bool    `env:"AUTO_LAUNCH" envDefault:"true"`

	ServerRedisCache string `env:"SERVER" envDefault:"server1"`
	HostRedisCache   string `env:"HOST"` // empty disables the quote cache
	PortRedisCache   string `env:"PORT" envDefault:"6379"`
}
