package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      Log      `yaml:"log"`
	Server   Server   `yaml:"server"`
	OpenAI   OpenAI   `yaml:"openai"`
	Telegram Telegram `yaml:"telegram"`
	Chat     Chat     `yaml:"chat"`
	Leads    Leads    `yaml:"leads"`
}

type OpenAI struct {
	// OpenAI API token
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX" validate:"required"`
	// Optional API base url override
	BaseURL string `yaml:"base_url" example:"https://api.openai.com/v1"`
	// Assistant (persona) to run conversations against
	AssistantID string `yaml:"assistant_id" example:"asst_abc123DEF456ghi789" validate:"required"`
	// Cheap model for the answer quality gate; empty disables the gate
	JudgeModel string `yaml:"judge_model" example:"gpt-4o-mini"`
}

type Telegram struct {
	// Bot token for lead notifications, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Operator chat to relay conversations to
	ChatID int64 `yaml:"chat_id" example:"-1001234567890"`
	// Log relays instead of sending them
	Disabled bool `yaml:"disabled" example:"false"`
}

type Server struct {
	// HTTP listen port
	Port int `yaml:"port" example:"8080"`
	// Public base url used for history deep links
	PublicURL string `yaml:"public_url" example:"https://bot.example.com"`
	// CORS origins for the chat widget
	AllowOrigins string `yaml:"allow_origins" example:"*"`
}

type Chat struct {
	// Hard deadline for a single assistant run
	RunDeadlineSec int `yaml:"run_deadline_sec" example:"60"`
	// Run status poll interval
	PollIntervalSec int `yaml:"poll_interval_sec" example:"1"`
	// Inactivity threshold before a conversation is relayed
	QuietPeriodSec int `yaml:"quiet_period_sec" example:"40"`
	// Watchdog re-check interval
	WatchTickSec int `yaml:"watch_tick_sec" example:"5"`
	// Cap on runs polled simultaneously
	MaxConcurrentRuns int64 `yaml:"max_concurrent_runs" example:"8"`
	// Page size for history and delta reads
	HistoryLimit int `yaml:"history_limit" example:"50"`
}

type Leads struct {
	// Operator contact fragments the assistant may quote (phone, email)
	OperatorContacts []string `yaml:"operator_contacts"`
	// Intent categories, evaluated in order after the contact rules
	Categories []Category `yaml:"categories" validate:"dive"`
}

type Category struct {
	Name     string   `yaml:"name" validate:"required"`
	Urgent   bool     `yaml:"urgent"`
	Keywords []string `yaml:"keywords" validate:"required,min=1"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load() (*Config, error) {
	return loadFrom("config.yaml")
}

func loadFrom(path string) (*Config, error) {
	var result Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	applyDefaults(&result)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	if !result.Telegram.Disabled && (result.Telegram.Token == "" || result.Telegram.ChatID == 0) {
		return nil, oops.Errorf("telegram token and chat_id are required unless telegram.disabled is set")
	}

	return &result, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.AllowOrigins == "" {
		cfg.Server.AllowOrigins = "*"
	}
	if cfg.Chat.RunDeadlineSec == 0 {
		cfg.Chat.RunDeadlineSec = 60
	}
	if cfg.Chat.PollIntervalSec == 0 {
		cfg.Chat.PollIntervalSec = 1
	}
	if cfg.Chat.QuietPeriodSec == 0 {
		cfg.Chat.QuietPeriodSec = 40
	}
	if cfg.Chat.WatchTickSec == 0 {
		cfg.Chat.WatchTickSec = 5
	}
	if cfg.Chat.MaxConcurrentRuns == 0 {
		cfg.Chat.MaxConcurrentRuns = 8
	}
	if cfg.Chat.HistoryLimit == 0 {
		cfg.Chat.HistoryLimit = 50
	}
	if len(cfg.Leads.Categories) == 0 {
		cfg.Leads.Categories = DefaultCategories()
	}
}

// DefaultCategories is the built-in intent taxonomy used when the config
// does not provide one.
func DefaultCategories() []Category {
	return []Category{
		{
			Name:   "legal-emergency",
			Urgent: true,
			Keywords: []string{
				"arrest", "arrested", "police", "detained", "deported",
				"deportation", "court tomorrow", "overstay", "in custody",
			},
		},
		{
			Name: "visa-business",
			Keywords: []string{
				"visa", "work permit", "company registration", "business license",
				"shareholder",
			},
		},
		{
			Name: "real-estate",
			Keywords: []string{
				"condo", "lease", "land", "deposit", "landlord", "purchase agreement",
			},
		},
		{
			Name: "family",
			Keywords: []string{
				"divorce", "custody", "marriage", "prenup", "inheritance",
			},
		},
		{
			Name: "distrust",
			Keywords: []string{
				"scam", "fraud", "cheated", "stole my money", "fake lawyer",
			},
		},
	}
}
