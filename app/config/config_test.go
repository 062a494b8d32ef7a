package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
openai:
  token: sk-test
  assistant_id: asst_test
telegram:
  disabled: true
`)

	cfg, err := loadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "*", cfg.Server.AllowOrigins)
	assert.Equal(t, 60, cfg.Chat.RunDeadlineSec)
	assert.Equal(t, 1, cfg.Chat.PollIntervalSec)
	assert.Equal(t, 40, cfg.Chat.QuietPeriodSec)
	assert.Equal(t, 5, cfg.Chat.WatchTickSec)
	assert.NotEmpty(t, cfg.Leads.Categories, "default taxonomy is applied")
}

func TestLoadRejectsMissingCredentials(t *testing.T) {
	path := writeConfig(t, `
openai:
  token: sk-test
telegram:
  disabled: true
`)

	_, err := loadFrom(path)
	assert.Error(t, err, "missing assistant_id must fail validation")
}

func TestLoadRequiresSinkUnlessDisabled(t *testing.T) {
	path := writeConfig(t, `
openai:
  token: sk-test
  assistant_id: asst_test
`)

	_, err := loadFrom(path)
	assert.Error(t, err, "sink credentials required when not disabled")
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  public_url: https://bot.example.com
openai:
  token: sk-test
  assistant_id: asst_test
  judge_model: gpt-4o-mini
telegram:
  token: 12345:token
  chat_id: -100123
chat:
  quiet_period_sec: 180
  run_deadline_sec: 110
leads:
  operator_contacts:
    - "+66 2 123 4567"
  categories:
    - name: legal-emergency
      urgent: true
      keywords: [arrested, police]
`)

	cfg, err := loadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 180, cfg.Chat.QuietPeriodSec)
	assert.Equal(t, 110, cfg.Chat.RunDeadlineSec)
	assert.Equal(t, int64(-100123), cfg.Telegram.ChatID)
	require.Len(t, cfg.Leads.Categories, 1)
	assert.True(t, cfg.Leads.Categories[0].Urgent)
}
