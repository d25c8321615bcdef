package config

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("signing-key"))

	tcases := []struct {
		name   string
		addr   string
		dsn    string
		secret string
		orig   []string
		cron   string
		err    bool
	}{
		{
			name:   "valid config",
			addr:   "localhost:8080",
			dsn:    "postgres://localhost:5432/chat",
			secret: secret,
			orig:   []string{"http://localhost:3000"},
			cron:   "*/5 * * * *",
		},
		{
			name:   "empty cron falls back to default",
			addr:   "localhost:8080",
			dsn:    "postgres://localhost:5432/chat",
			secret: secret,
		},
		{
			name:   "missing address",
			dsn:    "postgres://localhost:5432/chat",
			secret: secret,
			err:    true,
		},
		{
			name:   "missing dsn",
			addr:   "localhost:8080",
			secret: secret,
			err:    true,
		},
		{
			name: "missing secret",
			addr: "localhost:8080",
			dsn:  "postgres://localhost:5432/chat",
			err:  true,
		},
		{
			name:   "secret is not base64",
			addr:   "localhost:8080",
			dsn:    "postgres://localhost:5432/chat",
			secret: "%%%not-base64%%%",
			err:    true,
		},
		{
			name:   "invalid cron expression",
			addr:   "localhost:8080",
			dsn:    "postgres://localhost:5432/chat",
			secret: secret,
			cron:   "every minute",
			err:    true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.addr, tc.dsn, tc.secret, tc.orig, tc.cron)
			if tc.err {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.addr, cfg.ServerAddr)
			assert.Equal(t, tc.dsn, cfg.DatabaseDSN)
			assert.Equal(t, []byte("signing-key"), cfg.SigningKey)
			assert.Equal(t, tc.orig, cfg.AllowedOrigins)

			if tc.cron == "" {
				assert.Equal(t, DefaultDispatchCron, cfg.DispatchCron)
			} else {
				assert.Equal(t, tc.cron, cfg.DispatchCron)
			}
		})
	}
}
