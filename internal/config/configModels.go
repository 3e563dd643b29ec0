package config

import "time"

type Config struct {
	Env             string           `yaml:"env" env:"ENV" env-default:"local"`
	HttpServer      HttpServerConfig `yaml:"httpServer" env-required:"true"`
	DBConfig        DBConfig         `yaml:"db" env-required:"true"`
	AIConfig        AIConfig         `yaml:"ai" env-required:"true"`
	DiscoveryConfig DiscoveryConfig  `yaml:"discovery"`
	BookingConfig   BookingConfig    `yaml:"booking"`
	PipelineConfig  PipelineConfig   `yaml:"pipeline"`
	BotConfig       BotConfig        `yaml:"bot"`
}

type HttpServerConfig struct {
	Address string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost"`
	Port    string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
	Secret  string        `yaml:"secret" env:"HTTP_SECRET" env-required:"true"`
}

type DBConfig struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"postgres"`
	User     string `yaml:"user" env:"DB_USER" env-default:"user"`
	Password string `yaml:"password" env:"DB_PASSWORD" env-default:"password"`
}

type AIConfig struct {
	Timeout     int     `yaml:"timeout" env:"AI_TIMEOUT" env-default:"120"` // in seconds
	ModelName   string  `yaml:"modelName" env:"AI_MODEL_NAME" env-required:"true"`
	AIApiToken  string  `yaml:"aiapitoken" env:"AI_API_TOKEN" env-required:"true"`
	MaxTokens   int     `yaml:"maxTokens" env-default:"4096"`
	Temperature float32 `yaml:"temperature" env-default:"0.7"`
}

func (c AIConfig) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// ChannelConfig describes one discovery channel.
type ChannelConfig struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"baseUrl"`
	APIKey  string `yaml:"apiKey" env:"DISCOVERY_API_KEY"`
}

type DiscoveryConfig struct {
	Timeout    int             `yaml:"timeout" env:"DISCOVERY_TIMEOUT" env-default:"60"` // in seconds
	MaxResults int             `yaml:"maxResults" env-default:"20"`
	MaxRetries int             `yaml:"maxRetries" env-default:"3"`
	Channels   []ChannelConfig `yaml:"channels"`
}

func (c DiscoveryConfig) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

type BookingConfig struct {
	Headless         bool          `yaml:"headless" env-default:"true"`
	StepTimeout      int           `yaml:"stepTimeout" env-default:"15"` // in seconds
	MaxCheckoutSteps int           `yaml:"maxCheckoutSteps" env-default:"6"`
	ScreenshotDir    string        `yaml:"screenshotDir" env-default:"./screenshots"`
	Profile          ProfileConfig `yaml:"profile"`
}

// ProfileConfig is the user identity filled into checkout forms.
type ProfileConfig struct {
	FullName string `yaml:"fullName" env:"BOOKING_FULL_NAME"`
	Email    string `yaml:"email" env:"BOOKING_EMAIL"`
	Phone    string `yaml:"phone" env:"BOOKING_PHONE"`
	Dietary  string `yaml:"dietary"`
}

func (c BookingConfig) GetStepTimeout() time.Duration {
	return time.Duration(c.StepTimeout) * time.Second
}

type PipelineConfig struct {
	MaxItineraryItems  int           `yaml:"maxItineraryItems" env-default:"4"`
	EndOfDayCutoff     string        `yaml:"endOfDayCutoff" env-default:"23:00"`
	MaxSpanHours       float64       `yaml:"maxSpanHours" env-default:"8"`
	MaxIdleGap         time.Duration `yaml:"maxIdleGap" env-default:"45m"`
	TraceTTL           time.Duration `yaml:"traceTTL" env-default:"10m"`
	TraceSweepEvery    time.Duration `yaml:"traceSweepEvery" env-default:"2m"`
	ApprovalTTL        time.Duration `yaml:"approvalTTL" env-default:"30m"`
	ApprovalSweepEvery time.Duration `yaml:"approvalSweepEvery" env-default:"5m"`
}

type BotConfig struct {
	Enabled       bool     `yaml:"enabled" env:"TGBOT_ENABLED" env-default:"false"`
	Admins        []string `yaml:"admins"`
	TgbotApiToken string   `yaml:"tgbot_apitoken" env:"TGBOT_APITOKEN"`
	ChannelIDs    []int64  `yaml:"channelIds"`
}
