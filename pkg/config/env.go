package config

// EnvPrefix is passed to envconfig; individual fields carry fully-prefixed tags.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "GRAINLEDGER_DB_DSN"
	EnvDBHost = "GRAINLEDGER_DB_HOST"
	EnvDBUser = "GRAINLEDGER_DB_USER"
	EnvDBName = "GRAINLEDGER_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
