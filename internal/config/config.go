package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nurtureme/support-relay/internal/relay"
)

// Config aggregates every setting the service needs.
type Config struct {
	Server ServerConfig
	Relay  RelayConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	relayCfg, err := loadRelayConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Relay: relayCfg}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr       string
	CORSOrigin string
}

func loadServerConfig() (ServerConfig, error) {
	origin := getEnvOrDefault("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port, CORSOrigin: origin}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, CORSOrigin: origin}, nil
}

// RelayConfig tunes the relay service.
type RelayConfig struct {
	SendBuffer   int
	HistoryLimit int
	UserRouting  relay.RoutingMode
}

func loadRelayConfig() (RelayConfig, error) {
	sendBuffer := 32
	if override, err := parseOptionalIntEnv("RELAY_SEND_BUFFER"); err != nil {
		return RelayConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return RelayConfig{}, fmt.Errorf("RELAY_SEND_BUFFER must be positive, got %d", *override)
		}
		sendBuffer = *override
	}

	historyLimit := 0
	if override, err := parseOptionalIntEnv("RELAY_HISTORY_LIMIT"); err != nil {
		return RelayConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return RelayConfig{}, fmt.Errorf("RELAY_HISTORY_LIMIT must not be negative, got %d", *override)
		}
		historyLimit = *override
	}

	routing := relay.RoutingMode(getEnvOrDefault("RELAY_USER_ROUTING", string(relay.RouteAll)))
	switch routing {
	case relay.RouteAll, relay.RouteAdminsOnly:
	default:
		return RelayConfig{}, fmt.Errorf("invalid RELAY_USER_ROUTING value: %q", routing)
	}

	return RelayConfig{
		SendBuffer:   sendBuffer,
		HistoryLimit: historyLimit,
		UserRouting:  routing,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
