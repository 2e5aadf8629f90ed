// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/curioloop/owlqn/lbfgs"
)

// Config is the configuration of a benchmark run.
// It is read from an optional file, LBFGS_* environment variables and flags, in increasing precedence.
type Config struct {
	Problems    []string `mapstructure:"problems" validate:"required,min=1,dive,required"`
	Dim         int      `mapstructure:"dim" validate:"gt=0"`
	Parallelism int      `mapstructure:"parallelism" validate:"gte=0"`
	LogLevel    string   `mapstructure:"logLevel" validate:"oneof=panic fatal error warn warning info debug trace"`
	// Gradient is either analytic or a finite difference method of numdiff.
	Gradient string `mapstructure:"gradient" validate:"oneof=analytic forward central"`
	// Param starts from lbfgs.DefaultParam, only the configured fields are overridden.
	Param lbfgs.Param `mapstructure:"param"`
}

var CustomHooks = []viper.DecoderConfigOption{
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		LineSearchHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)),
}

// LineSearchHookFunc decodes the names of lbfgs.LineSearch.
func LineSearchHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		// check that src and target types are valid
		if f.Kind() != reflect.String || t != reflect.TypeOf(lbfgs.LineSearch(0)) {
			return data, nil
		}
		return lbfgs.ParseLineSearch(data.(string))
	}
}

// flag name -> configuration key
var flagKeys = map[string]string{
	"problems":       "problems",
	"dim":            "dim",
	"parallelism":    "parallelism",
	"log-level":      "logLevel",
	"gradient":       "gradient",
	"linesearch":     "param.lineSearch",
	"max-iterations": "param.maxIterations",
	"orthantwise-c":  "param.orthantwiseC",
}

// LoadConfig builds the configuration from the file at path (when not empty), the environment and the flags.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {

	v := viper.New()
	v.SetEnvPrefix("lbfgs")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrapf(err, "binding flag %s", name)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
	}

	config := &Config{
		Problems: []string{"rosenbrock"},
		Dim:      10,
		LogLevel: "info",
		Gradient: "analytic",
		Param:    lbfgs.DefaultParam,
	}
	if err := v.Unmarshal(config, CustomHooks...); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}

	if err := validator.New().Struct(config); err != nil {
		LogValidationErrors(err)
		return nil, errors.Wrap(err, "invalid config")
	}
	if err := config.Param.Validate(config.Dim); err != nil {
		return nil, errors.Wrap(err, "invalid param")
	}
	return config, nil
}

func LogValidationErrors(err error) {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return
	}
	for _, err := range errs {
		fieldName := stripPrefix(err.Namespace())
		tag := err.Tag()
		switch tag {
		case "required":
			log.Errorf("ConfigError: Field %s is required but was not found", fieldName)
		default:
			log.Errorf("ConfigError: Field %s has invalid value %v: %s", fieldName, err.Value(), tag)
		}
	}
}

func stripPrefix(s string) string {
	if idx := strings.Index(s, "."); idx != -1 {
		return s[idx+1:]
	}
	return s
}
