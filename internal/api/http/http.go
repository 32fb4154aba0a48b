package http

type Config struct {
	Port        uint   `mapstructure:"port"`
	AdminAPIKey string `mapstructure:"admin_api_key"`
	RateLimit   Rate   `mapstructure:"rate_limit"`
}

type Rate struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}
