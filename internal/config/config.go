package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Socket        SocketConfig
	Client        ClientConfig
	Notifications NotificationsConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SocketConfig points the client transport at the server and tunes its
// reconnect backoff.
type SocketConfig struct {
	URL               string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
}

// ClientConfig is the identity and room the client command connects with.
type ClientConfig struct {
	UserID      string
	DisplayName string
	Room        string
}

type NotificationsConfig struct {
	// FeedCapacity is the per-room notification ring size.
	FeedCapacity int
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("RULEBOARD_HOST", "")
	viper.SetDefault("RULEBOARD_PORT", "5176")
	viper.SetDefault("RULEBOARD_READ_TIMEOUT", 30*time.Second)
	viper.SetDefault("RULEBOARD_WRITE_TIMEOUT", 30*time.Second)
	viper.SetDefault("RULEBOARD_IDLE_TIMEOUT", 60*time.Second)
	viper.SetDefault("RULEBOARD_WS_URL", "ws://localhost:5176/api/v1/ws")
	viper.SetDefault("RULEBOARD_RECONNECT_DELAY", 750*time.Millisecond)
	viper.SetDefault("RULEBOARD_MAX_RECONNECT_DELAY", 8*time.Second)
	viper.SetDefault("RULEBOARD_USER_ID", "demo-user")
	viper.SetDefault("RULEBOARD_DISPLAY_NAME", "Demo User")
	viper.SetDefault("RULEBOARD_ROOM", "general")
	viper.SetDefault("RULEBOARD_NOTIF_FEED_CAPACITY", 256)
	viper.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Host:         viper.GetString("RULEBOARD_HOST"),
			Port:         viper.GetString("RULEBOARD_PORT"),
			ReadTimeout:  viper.GetDuration("RULEBOARD_READ_TIMEOUT"),
			WriteTimeout: viper.GetDuration("RULEBOARD_WRITE_TIMEOUT"),
			IdleTimeout:  viper.GetDuration("RULEBOARD_IDLE_TIMEOUT"),
		},
		Socket: SocketConfig{
			URL:               viper.GetString("RULEBOARD_WS_URL"),
			ReconnectDelay:    viper.GetDuration("RULEBOARD_RECONNECT_DELAY"),
			MaxReconnectDelay: viper.GetDuration("RULEBOARD_MAX_RECONNECT_DELAY"),
		},
		Client: ClientConfig{
			UserID:      viper.GetString("RULEBOARD_USER_ID"),
			DisplayName: viper.GetString("RULEBOARD_DISPLAY_NAME"),
			Room:        viper.GetString("RULEBOARD_ROOM"),
		},
		Notifications: NotificationsConfig{
			FeedCapacity: viper.GetInt("RULEBOARD_NOTIF_FEED_CAPACITY"),
		},
	}, nil
}
