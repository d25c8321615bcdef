package config

import (
	"encoding/base64"
	"fmt"

	"github.com/adhocore/gronx"
)

// DefaultDispatchCron sweeps for due scheduled messages once a minute.
const DefaultDispatchCron = "* * * * *"

type Config struct {
	ServerAddr     string
	DatabaseDSN    string
	SigningKey     []byte
	AllowedOrigins []string
	DispatchCron   string
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string, dispatchCron string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	if dispatchCron == "" {
		dispatchCron = DefaultDispatchCron
	}
	if !gronx.IsValid(dispatchCron) {
		return nil, fmt.Errorf("invalid dispatch cron expression: %q", dispatchCron)
	}

	return &Config{
		ServerAddr:     serverAddr,
		DatabaseDSN:    databaseDSN,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
		DispatchCron:   dispatchCron,
	}, nil
}
