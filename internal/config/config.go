// Package config loads yomu settings from defaults, yomu.toml and YOMU_* variables.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/metcalfc/yomu/internal/filesystem"
	"github.com/metcalfc/yomu/internal/where"
	"github.com/spf13/viper"
)

// EnvKeyReplacer maps config keys to environment variable names.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Setup configures the global viper instance.
func Setup() error {
	viper.SetConfigName("yomu")
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix("yomu")
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		if err := viper.BindEnv(env); err != nil {
			return err
		}
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// OffsetStep returns the configured subtitle offset step.
func OffsetStep() time.Duration {
	ms := viper.GetInt(PlayerOffsetStepMS)
	if ms <= 0 {
		ms = Default[PlayerOffsetStepMS].Value.(int)
	}
	return time.Duration(ms) * time.Millisecond
}

// ProgressTimeoutDuration returns the remote call timeout, falling back to the default on bad input.
func ProgressTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(viper.GetString(ProgressTimeout))
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(Default[ProgressTimeout].Value.(string))
	}
	return d
}
