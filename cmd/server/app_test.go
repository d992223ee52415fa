package main

import (
	"path/filepath"
	"testing"

	"floorshop_back_end/internal/cache"
	"floorshop_back_end/internal/checkout"
	"floorshop_back_end/internal/config"
	"floorshop_back_end/internal/metrics"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := rootCmd()

	for _, name := range []string{"serve", "migrate"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestNumberSourceSelection(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "orders.db")), &gorm.Config{})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	settings := config.DefaultShopSettings()

	dbSource := numberSource(config.AppConfig{NumberingSource: "db"}, settings, db, client)
	assert.IsType(t, &checkout.GormNumberSource{}, dbSource)

	redisSource := numberSource(config.AppConfig{NumberingSource: "redis"}, settings, db, client)
	assert.IsType(t, &cache.RedisNumberSource{}, redisSource)

	fallback := numberSource(config.AppConfig{NumberingSource: "redis"}, settings, db, nil)
	assert.IsType(t, &checkout.GormNumberSource{}, fallback)
}

func TestBuildSideEffectsWithoutBackends(t *testing.T) {
	effects, closeFn := buildSideEffects(t.Context(), config.AppConfig{PublicBaseURL: "https://shop.example.com"}, metrics.Noop())

	require.NotNil(t, effects)
	assert.NotPanics(t, closeFn)
}
