package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "memory", cfg.Store.InventoryDriver)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.True(t, cfg.Monitor.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Monitor.Interval)
	assert.Equal(t, 32, cfg.Inventory.MaxCASRetries)
	assert.Equal(t, 5, cfg.Order.MaxUpdateRetries)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("INVENTORY_DRIVER", "dynamodb")
	t.Setenv("DYNAMODB_TABLE", "stock")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("MONITOR_INTERVAL", "30s")
	t.Setenv("INVENTORY_MAX_CAS_RETRIES", "8")
	t.Setenv("INVENTORY_ALERT_STAFF", "true")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "dynamodb", cfg.Store.InventoryDriver)
	assert.Equal(t, "stock", cfg.Store.DynamoDBTable)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, 8, cfg.Inventory.MaxCASRetries)
	assert.True(t, cfg.Inventory.AlertStaff)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()

	assert.ErrorContains(t, err, "JWT_SECRET is required")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store:     StoreConfig{Driver: "memory", InventoryDriver: "memory"},
			JWT:       JWTConfig{Secret: testSecret},
			Monitor:   MonitorConfig{Enabled: true, Interval: time.Minute},
			Inventory: InventoryConfig{MaxCASRetries: 32},
			Order:     OrderConfig{MaxUpdateRetries: 5},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "short secret", mutate: func(c *Config) { c.JWT.Secret = "short" }, wantErr: "at least 32 characters"},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "mysql" }, wantErr: "STORE_DRIVER"},
		{name: "unknown inventory driver", mutate: func(c *Config) { c.Store.InventoryDriver = "redis" }, wantErr: "INVENTORY_DRIVER"},
		{name: "postgres inventory without postgres store", mutate: func(c *Config) { c.Store.InventoryDriver = "postgres" }, wantErr: "requires STORE_DRIVER=postgres"},
		{name: "dynamodb without table", mutate: func(c *Config) { c.Store.InventoryDriver = "dynamodb" }, wantErr: "DYNAMODB_TABLE"},
		{name: "zero interval", mutate: func(c *Config) { c.Monitor.Interval = 0 }, wantErr: "MONITOR_INTERVAL"},
		{name: "disabled monitor ignores interval", mutate: func(c *Config) { c.Monitor = MonitorConfig{} }},
		{name: "brokers without topic", mutate: func(c *Config) { c.Kafka.Brokers = []string{"k:9092"} }, wantErr: "KAFKA_TOPIC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_Validate_InventoryDriverFollowsStore(t *testing.T) {
	cfg := &Config{
		Store:     StoreConfig{Driver: "postgres", DatabaseURL: "postgres://x"},
		JWT:       JWTConfig{Secret: testSecret},
		Inventory: InventoryConfig{MaxCASRetries: 1},
		Order:     OrderConfig{MaxUpdateRetries: 1},
	}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "postgres", cfg.Store.InventoryDriver)
}
