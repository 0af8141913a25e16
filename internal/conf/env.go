package conf

import (
	"fmt"
	"strconv"

	"github.com/spf13/viper"
)

// envBinding binds one viper config key to an environment variable, with
// an optional validator for the raw string value. bindEnv only registers
// the bindings; it does not run the validators.
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"database.driver", "VIOLIN_DB_DRIVER", validateDriver},
		{"database.dsn", "VIOLIN_DB_DSN", nil},
		{"database.maxopenconns", "VIOLIN_DB_MAX_OPEN_CONNS", validatePositiveInt},
		{"database.maxidleconns", "VIOLIN_DB_MAX_IDLE_CONNS", validatePositiveInt},

		{"noteservice.image", "OAF_IMAGE", nil},
		{"noteservice.container", "OAF_CONTAINER", nil},
		{"noteservice.host", "OAF_HOST", nil},
		{"noteservice.port", "OAF_PORT", validatePort},

		{"workdir", "VIOLIN_WORKDIR", nil},
	}
}

// bindEnv registers every binding with viper so that environment variables
// override both the embedded defaults and any on-disk config file.
func bindEnv() {
	for _, b := range getEnvBindings() {
		_ = viper.BindEnv(b.ConfigKey, b.EnvVar)
	}
}

func validateDriver(v string) error {
	if v != "mysql" && v != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", v)
	}
	return nil
}

func validatePositiveInt(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("expected a positive integer, got %q", v)
	}
	return nil
}

func validatePort(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("invalid port %q", v)
	}
	return nil
}
