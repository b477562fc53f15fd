package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	// empty values fall back to the tag defaults
	for _, k := range []string{"PORT", "DATABASE_URL", "DATABASE", "DB_HOST", "SECRET_KEY", "CSRF_ENABLED"} {
		t.Setenv(k, "")
	}

	c, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", c.Addr)
	assert.Equal(t, "warbler.db", c.DatabaseURL)
	assert.Equal(t, "it's a secret", c.SecretKey)
	assert.Equal(t, 16*time.Hour, c.SessionMaxAge)
	assert.Equal(t, 2*time.Second, c.SlowRequest)
	assert.Equal(t, 10, c.BcryptCost)
	assert.True(t, c.CSRFEnabled)
	assert.False(t, c.RequireMessageOwner)
	assert.False(t, c.ProtectUserDelete)
	assert.False(t, c.IsPostgres())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", ":8080")
	t.Setenv("DATABASE_URL", "postgres://warbler@localhost/warbler")
	t.Setenv("SECRET_KEY", "s3cr3t")
	t.Setenv("CSRF_ENABLED", "false")
	t.Setenv("WARBLER_REQUIRE_MESSAGE_OWNER", "true")
	t.Setenv("SLOW_REQUEST_THRESHOLD", "500ms")

	c, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, "s3cr3t", c.SecretKey)
	assert.False(t, c.CSRFEnabled)
	assert.True(t, c.RequireMessageOwner)
	assert.Equal(t, 500*time.Millisecond, c.SlowRequest)
	assert.True(t, c.IsPostgres())
}

func TestFromEnv_DatabaseFallback(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE", "/tmp/minitwit.db")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/minitwit.db", c.DatabaseURL)
	assert.Equal(t, "/tmp/minitwit.db", c.DSN())

	t.Setenv("DATABASE_URL", "warbler-url.db")
	c, err = FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "warbler-url.db", c.DatabaseURL)
}

func TestDSN_BuildsPostgresFromHost(t *testing.T) {
	c := &Config{
		DatabaseURL: "ignored.db",
		DBHost:      "db.internal",
		DBPort:      "5433",
		DBUser:      "warbler",
		DBPassword:  "pw",
		DBName:      "warbler",
		DBSSLMode:   "disable",
	}

	assert.Equal(t, "host=db.internal port=5433 user=warbler password=pw dbname=warbler sslmode=disable", c.DSN())
	assert.True(t, c.IsPostgres())
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected *Config
		wantErr  bool
	}{
		{
			name:     "no flags keeps values",
			args:     nil,
			expected: &Config{Addr: ":9090", DatabaseURL: "warbler.db", SecretKey: "k"},
		},
		{
			name:     "all flags",
			args:     []string{"-a", "127.0.0.1:5000", "-d", "/tmp/w.db", "-s", "other"},
			expected: &Config{Addr: "127.0.0.1:5000", DatabaseURL: "/tmp/w.db", SecretKey: "other"},
		},
		{
			name:    "unknown flag",
			args:    []string{"-zzz"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Addr: ":9090", DatabaseURL: "warbler.db", SecretKey: "k"}

			err := parseFlags(c, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, c))
		})
	}
}
