package config

const (
	EnvPrefix = "JEWELBID"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "JEWELBID_APP_ENV"
	EnvPort   = "JEWELBID_APP_PORT"

	EnvDBDSN  = "JEWELBID_DB_DSN"
	EnvDBHost = "JEWELBID_DB_HOST"
	EnvDBUser = "JEWELBID_DB_USER"
	EnvDBName = "JEWELBID_DB_NAME"

	EnvRedisURL  = "JEWELBID_REDIS_URL"
	EnvJWTSecret = "JEWELBID_JWT_SECRET"
	EnvJWTIssuer = "JEWELBID_JWT_ISSUER"

	EnvAntiSnipe       = "JEWELBID_AUCTION_ANTI_SNIPE"
	EnvMinBidIncrement = "JEWELBID_MIN_BID_INCREMENT"
	EnvDefaultCurrency = "JEWELBID_DEFAULT_CURRENCY"
	EnvCronSecret      = "JEWELBID_CRON_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
