package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv    = "STOREFRONT_APP_ENV"
	EnvPort      = "STOREFRONT_APP_PORT"
	EnvDBDSN     = "STOREFRONT_DB_DSN"
	EnvDBDriver  = "STOREFRONT_DB_DRIVER"
	EnvDBHost    = "STOREFRONT_DB_HOST"
	EnvDBUser    = "STOREFRONT_DB_USER"
	EnvDBName    = "STOREFRONT_DB_NAME"
	EnvDBPass    = "STOREFRONT_DB_PASSWORD"
	EnvRedisURL  = "STOREFRONT_REDIS_URL"
	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer = "STOREFRONT_JWT_ISSUER"

	EnvPayPalClientID     = "STOREFRONT_PAYPAL_CLIENT_ID"
	EnvPayPalClientSecret = "STOREFRONT_PAYPAL_CLIENT_SECRET"
	EnvStripeAPIKey       = "STOREFRONT_STRIPE_API_KEY"
	EnvStripeSecret       = "STOREFRONT_STRIPE_SECRET"
	EnvPubSubReceiptTopic = "STOREFRONT_PUBSUB_RECEIPT_TOPIC"
)

var dsnPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
