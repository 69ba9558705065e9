package config

import (
	"testing"

	"web3-talent-scout/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("GEMINI_API_KEY", "ai_test")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("GEMINI_MODEL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "development", cfg.AppEnv)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.GeminiModel)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("APP_ENV", "production")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("DATABASE_DSN", "host=db user=scout")
	t.Setenv("FEISHU_WEBHOOK", "https://open.feishu.cn/hook/xxx")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr())
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "gemini-2.5-pro", cfg.GeminiModel)
	assert.Equal(t, "host=db user=scout", cfg.DatabaseDSN)
	assert.NotEmpty(t, cfg.FeishuHook)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name   string
		unset  string
		others map[string]string
	}{
		{name: "缺 GITHUB_TOKEN", unset: "GITHUB_TOKEN", others: map[string]string{"GEMINI_API_KEY": "x"}},
		{name: "缺 GEMINI_API_KEY", unset: "GEMINI_API_KEY", others: map[string]string{"GITHUB_TOKEN": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.unset, "")
			for k, v := range tt.others {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, common.ErrCodeInvalidInput, common.CodeOf(err))
		})
	}
}
