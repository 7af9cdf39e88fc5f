package steam

// Config holds configuration for the Steamworks Web API client.
type Config struct {
	// BaseURL is the root of the Steamworks partner API.
	BaseURL string `mapstructure:"base_url" default:"https://partner.steam-api.com"`
	// AttemptTimeoutMS bounds each individual HTTP attempt in milliseconds.
	AttemptTimeoutMS int `mapstructure:"attempt_timeout_ms" default:"1000"`
	// MaxRetries is the number of retries after the first failed attempt.
	MaxRetries int `mapstructure:"max_retries" default:"2"`
	// RetryDelayMS is the fixed delay between attempts in milliseconds.
	RetryDelayMS int `mapstructure:"retry_delay_ms" default:"100"`
	// PushBatchSize is the number of outbound score/stat pushes between pauses.
	PushBatchSize int `mapstructure:"push_batch_size" default:"10"`
	// PushPauseMS is the pause inserted after each push batch, in milliseconds.
	PushPauseMS int `mapstructure:"push_pause_ms" default:"500"`
}
