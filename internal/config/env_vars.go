package config

const (
	clientIDEnvVar     = "CONSUMER_ID"
	clientSecretEnvVar = "CONSUMER_SECRET"
)

type EnvVars struct {
	AppName string `env:"APP_NAME" envDefault:"tumblr-auth"`
	Env     string `env:"ENV" envDefault:"DEV"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	if e.AppName == "" {
		return "tumblr-auth"
	}
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return e.Env
}
