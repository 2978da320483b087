package config

// EnvPrefix is passed to envconfig; every field carries an explicit name.
const EnvPrefix = "SPORTSHUB"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "SPORTSHUB_APP_ENV"
	EnvPort     = "SPORTSHUB_APP_PORT"
	EnvLogLevel = "SPORTSHUB_LOG_LEVEL"

	EnvDBDSN  = "SPORTSHUB_DB_DSN"
	EnvDBHost = "SPORTSHUB_DB_HOST"
	EnvDBUser = "SPORTSHUB_DB_USER"
	EnvDBName = "SPORTSHUB_DB_NAME"

	EnvRedisURL = "SPORTSHUB_REDIS_URL"

	EnvJWTSecret = "SPORTSHUB_JWT_SECRET"
	EnvJWTIssuer = "SPORTSHUB_JWT_ISSUER"

	EnvGCPProjectID = "SPORTSHUB_GCP_PROJECT_ID"

	EnvPubSubPaymentsTopic = "SPORTSHUB_PUBSUB_PAYMENTS_TOPIC"

	EnvStripeAPIKey   = "SPORTSHUB_STRIPE_API_KEY"
	EnvStripeSecret   = "SPORTSHUB_STRIPE_SECRET"
	EnvStripeCurrency = "SPORTSHUB_STRIPE_CURRENCY"

	EnvCheckoutAmountTolerance = "SPORTSHUB_CHECKOUT_AMOUNT_TOLERANCE"
	EnvCheckoutGatewayMethods  = "SPORTSHUB_CHECKOUT_GATEWAY_METHODS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
