package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/pmguide/internal/config"
	"github.com/aretw0/pmguide/internal/logging"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const factorySession = "5d3a9b1e-6c2f-4e7a-8b90-1f2e3d4c5b6a"

func baseConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Port:             8080,
		KnowledgePath:    filepath.Join("..", "..", "knowledge", "privacy_mark.yaml"),
		StoreDriver:      config.DriverMemory,
		SessionDir:       filepath.Join(dir, "sessions"),
		DBPath:           filepath.Join(dir, "pmguide.db"),
		Redis:            config.RedisConfig{Prefix: "pmguide:session:"},
		LogFormat:        logging.FormatText,
		MaxMessageLength: 1000,
	}
}

func TestOpenBackend_Drivers(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		driver     string
		wantLocker bool
	}{
		{config.DriverMemory, false},
		{config.DriverFile, false},
		{config.DriverSQLite, false},
		{config.DriverRedis, true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg := baseConfig(t)
			cfg.StoreDriver = tt.driver
			cfg.Redis.Addr = mr.Addr()

			b, err := OpenBackend(context.Background(), cfg, logging.NewNop())
			require.NoError(t, err)
			defer b.Close()

			assert.Equal(t, tt.driver, b.Driver)
			assert.Equal(t, tt.wantLocker, b.Locker != nil)

			engine := NewEngine(cfg, b, logging.NewNop())
			ctx := context.Background()
			_, err = engine.Chat(ctx, factorySession, "u1", "必要な書類は？")
			require.NoError(t, err)

			cc, err := b.Contexts.Load(ctx, factorySession)
			require.NoError(t, err)
			assert.Len(t, cc.History, 2)

			p := domain.NewUserProgress("u1")
			require.NoError(t, b.Progress.SaveProgress(ctx, p))
			got, err := b.Progress.LoadProgress(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "u1", got.UserID)
		})
	}
}

func TestOpenBackend_UnknownDriver(t *testing.T) {
	cfg := baseConfig(t)
	cfg.StoreDriver = "mongo"
	_, err := OpenBackend(context.Background(), cfg, logging.NewNop())
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestOpenBackend_RedisUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	cfg := baseConfig(t)
	cfg.StoreDriver = config.DriverRedis
	cfg.Redis.Addr = addr
	_, err = OpenBackend(context.Background(), cfg, logging.NewNop())
	assert.ErrorContains(t, err, "redis ping failed")
}

func TestOpenBackend_PrivacyAtRest(t *testing.T) {
	cfg := baseConfig(t)
	cfg.StoreDriver = config.DriverFile
	cfg.Privacy = config.PrivacyConfig{
		MaskPII:       true,
		EncryptionKey: []byte(strings.Repeat("k", 32)),
	}

	b, err := OpenBackend(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	defer b.Close()

	engine := NewEngine(cfg, b, logging.NewNop())
	ctx := context.Background()
	_, err = engine.Chat(ctx, factorySession, "", "担当者 taro@example.co.jp の申請状況")
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(cfg.SessionDir, factorySession+".json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "taro@example.co.jp")
	assert.NotContains(t, string(raw), "担当者")

	cc, err := engine.Session(ctx, factorySession)
	require.NoError(t, err)
	require.Len(t, cc.History, 2)
	assert.Equal(t, "担当者 *** の申請状況", cc.History[0].Content)
}

func TestNewEngine_Hooks(t *testing.T) {
	cfg := baseConfig(t)
	b, err := OpenBackend(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	engine := NewEngine(cfg, b, logging.NewNop(), metrics.Hooks())

	_, err = engine.Chat(context.Background(), factorySession, "", "費用を知りたい")
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(metrics.Registry(), "pmguide_messages_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, filepath.Join("..", "..", "knowledge", "privacy_mark.yaml"), engine.Knowledge().Source())
}
