package config

const (
	EnvPrefix = "THRIFTLANE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	AmountPolicyTransaction = "transaction"
	AmountPolicySplit       = "split"
)

const (
	EnvAppEnv          = "THRIFTLANE_APP_ENV"
	EnvPort            = "THRIFTLANE_APP_PORT"
	EnvDBDSN           = "THRIFTLANE_DB_DSN"
	EnvDBHost          = "THRIFTLANE_DB_HOST"
	EnvDBUser          = "THRIFTLANE_DB_USER"
	EnvDBName          = "THRIFTLANE_DB_NAME"
	EnvUseSQLite       = "THRIFTLANE_USE_SQLITE"
	EnvRedisURL        = "THRIFTLANE_REDIS_URL"
	EnvJWTSecret       = "THRIFTLANE_JWT_SECRET"
	EnvJWTIssuer       = "THRIFTLANE_JWT_ISSUER"
	EnvJWTExpMins      = "THRIFTLANE_JWT_EXPIRATION_MINUTES"
	EnvPaystackSecret  = "THRIFTLANE_PAYSTACK_SECRET_KEY"
	EnvPaystackTimeout = "THRIFTLANE_PAYSTACK_VERIFY_TIMEOUT"
	EnvAmountPolicy    = "THRIFTLANE_RECONCILE_AMOUNT_POLICY"
	EnvCORSOrigins     = "THRIFTLANE_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
