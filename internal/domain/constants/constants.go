package constants

// Environments
const (
	EnvDevelop    = "develop"
	EnvStaging    = "staging"
	EnvProduction = "production"
)

// Relay providers for cross-instance event fan-out
const (
	RelayProviderNoop    = "noop"
	RelayProviderLocal   = "local"
	RelayProviderGoogle  = "google"
	RelayProviderRedis   = "redis"
	RelayProviderGoCloud = "gocloud"
)

// Cookie names used as token carriers
const (
	CookieAccessToken  = "accessToken"
	CookieRefreshToken = "refreshToken"
)
