package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultShopSettings(t *testing.T) {
	s := DefaultShopSettings()

	assert.Equal(t, "PLN", s.Currency)
	assert.Equal(t, TotalPolicyTrust, s.TotalPolicy)
	assert.Empty(t, s.Captcha.Secret, "anti-spam must be opt-in")
	assert.True(t, s.IsOnlinePayment("tpay"))
	assert.False(t, s.IsOnlinePayment("proforma"))
	require.NoError(t, s.Validate())
}

func TestShopSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*ShopSettings)
		wantErr bool
	}{
		{name: "defaults", modify: func(s *ShopSettings) {}},
		{name: "missing currency", modify: func(s *ShopSettings) { s.Currency = "" }, wantErr: true},
		{name: "missing number prefix", modify: func(s *ShopSettings) { s.OrderNumberPrefix = "" }, wantErr: true},
		{name: "unknown total policy", modify: func(s *ShopSettings) { s.TotalPolicy = "lenient" }, wantErr: true},
		{name: "strict total policy", modify: func(s *ShopSettings) { s.TotalPolicy = TotalPolicyStrict }},
		{name: "zero side effect timeout", modify: func(s *ShopSettings) { s.SideEffectTimeout = 0 }, wantErr: true},
		{
			name: "secret without verify url",
			modify: func(s *ShopSettings) {
				s.Captcha.Secret = "shh"
				s.Captcha.VerifyURL = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultShopSettings()
			tt.modify(&s)
			err := s.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadShopSettingsFromFile(t *testing.T) {
	t.Setenv("CAPTCHA_SECRET", "")
	path := filepath.Join(t.TempDir(), "shop.yaml")
	content := `
currency: EUR
order_number_prefix: FL
total_policy: strict
side_effect_timeout: 3s
base_shipping:
  production: 4900
captcha:
  secret: file-secret
  timeout: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadShopSettings(path)
	require.NoError(t, err)

	assert.Equal(t, "EUR", s.Currency)
	assert.Equal(t, "FL", s.OrderNumberPrefix)
	assert.Equal(t, TotalPolicyStrict, s.TotalPolicy)
	assert.Equal(t, 3*time.Second, s.SideEffectTimeout)
	assert.Equal(t, int64(4900), s.BaseShipping["production"])
	assert.Equal(t, "file-secret", s.Captcha.Secret)
	assert.Equal(t, 2*time.Second, s.Captcha.Timeout)
	// non surchargé par le fichier
	assert.Equal(t, "sample-", s.SampleProductPrefix)
}

func TestLoadShopSettingsEnvSecretOverridesFile(t *testing.T) {
	t.Setenv("CAPTCHA_SECRET", "env-secret")
	path := filepath.Join(t.TempDir(), "shop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("captcha:\n  secret: file-secret\n"), 0o644))

	s, err := LoadShopSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "env-secret", s.Captcha.Secret)
}

func TestLoadShopSettingsMissingFile(t *testing.T) {
	t.Setenv("CAPTCHA_SECRET", "")
	s, err := LoadShopSettings(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultShopSettings().Currency, s.Currency)
}

func TestLoadShopSettingsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("currency: [unterminated"), 0o644))

	_, err := LoadShopSettings(path)
	assert.Error(t, err)
}

func TestAppConfigValidate(t *testing.T) {
	cfg := AppConfig{NumberingSource: "db"}
	assert.NoError(t, cfg.Validate())

	cfg.NumberingSource = "redis"
	assert.Error(t, cfg.Validate(), "redis numbering needs REDIS_HOST")

	cfg.Redis.Addr = "localhost:6379"
	assert.NoError(t, cfg.Validate())

	cfg.StripeSecretKey = "sk_test"
	assert.Error(t, cfg.Validate(), "stripe needs a payment token secret")

	cfg.NumberingSource = "sequence"
	assert.Error(t, cfg.Validate())
}

func TestPostgresDSN(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: 5433, Database: "shop", Username: "u", Password: "p"}
	assert.Equal(t, "host=db user=u password=p dbname=shop port=5433 sslmode=disable", c.PostgresDSN())

	c.DSN = "postgres://x"
	assert.Equal(t, "postgres://x", c.PostgresDSN())
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PUBLIC_BASE_URL", "https://shop.example.com/")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("SCYLLA_HOSTS", "10.0.0.1,10.0.0.2")
	t.Setenv("NUMBERING_SOURCE", "")
	t.Setenv("MINIO_SECURE", "true")

	cfg := FromEnv()

	assert.Equal(t, "https://shop.example.com", cfg.PublicBaseURL)
	assert.Equal(t, []string{"https://shop.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Scylla.Hosts)
	assert.Equal(t, "db", cfg.NumberingSource)
	assert.True(t, cfg.Minio.Secure)
	assert.Equal(t, "orders-archive", cfg.Minio.Bucket)
}
