// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package config

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"

	"rivaas.dev/traceprop/config/codec"
	"rivaas.dev/traceprop/config/source"
)

// EnvPrefix is the prefix of environment variables read by [Default].
const EnvPrefix = "TRACEPROP_"

// EnvConfigFile names the configuration file. [Default] does not read it as
// a configuration key.
const EnvConfigFile = EnvPrefix + "CONFIG"

// tagName is the struct tag that maps fields to configuration keys.
const tagName = "config"

// Config is the effective configuration of a traceprop process.
type Config struct {
	ServiceName    string   `config:"service_name" default:"traceprop" validate:"required"`
	ServiceVersion string   `config:"service_version"`
	Enabled        bool     `config:"enabled" default:"true"`
	SendDefaultPII bool     `config:"send_default_pii"`
	SampleRate     float64  `config:"sample_rate" default:"1" validate:"gte=0,lte=1"`
	Propagators    []string `config:"propagators" validate:"dive,oneof=tracecontext baggage"`

	Exporter Exporter `config:"exporter"`
	Metrics  Metrics  `config:"metrics"`
	Server   Server   `config:"server"`
	Log      Log      `config:"log"`
}

// Exporter selects where finished spans go.
type Exporter struct {
	Provider string `config:"provider" default:"noop" validate:"oneof=noop stdout otlp otlp-http"`
	Endpoint string `config:"endpoint" validate:"required_if=Provider otlp,required_if=Provider otlp-http"`
	Insecure bool   `config:"insecure"`
}

// Metrics selects where span lifecycle metrics go.
type Metrics struct {
	Provider string        `config:"provider" default:"prometheus" validate:"oneof=prometheus otlp stdout"`
	Endpoint string        `config:"endpoint" validate:"required_if=Provider otlp"`
	Path     string        `config:"path" default:"/metrics" validate:"startswith=/"`
	Interval time.Duration `config:"interval" default:"30s" validate:"gt=0"`
}

// Server configures the demo service started by "traceprop serve".
type Server struct {
	Addr            string        `config:"addr" default:":8080" validate:"required"`
	Workers         int           `config:"workers" default:"8" validate:"gte=0"`
	ShutdownTimeout time.Duration `config:"shutdown_timeout" default:"10s" validate:"gt=0"`
	ExcludePaths    []string      `config:"exclude_paths" validate:"dive,startswith=/"`
	ExcludePrefixes []string      `config:"exclude_prefixes" validate:"dive,startswith=/"`
}

// Log configures process logging.
type Log struct {
	Level  string `config:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `config:"format" default:"text" validate:"oneof=text json logfmt"`
}

// Default returns the configuration built from defaults, the optional file
// at path and TRACEPROP_ environment variables, in increasing precedence.
func Default(ctx context.Context, path string) (*Config, error) {
	var sources []Source
	if path != "" {
		file, err := source.NewFileAuto(path)
		if err != nil {
			return nil, NewError(path, "load", err)
		}
		sources = append(sources, file)
	}

	return Load(ctx, append(sources, source.NewOSEnvVar(EnvPrefix).Without(strings.TrimPrefix(EnvConfigFile, EnvPrefix)))...)
}

// Defaults returns a Config holding only the values of the default tags.
func Defaults() *Config {
	cfg := &Config{}
	if err := applyDefaults(cfg); err != nil {
		panic(fmt.Sprintf("config: invalid default tag: %v", err))
	}

	return cfg
}

// Load merges sources in order, later sources overriding earlier ones, on
// top of the defaults, then decodes and validates the result.
//
// Errors:
//   - Returns [*Error] with Operation "load" or "merge" if a source fails
//   - Returns [*Error] with Operation "bind" if a value cannot be converted
//   - Returns one [*Error] per invalid field, joined, if validation fails
func Load(ctx context.Context, sources ...Source) (*Config, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}

	values, err := loadSources(ctx, sources)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err = decode(values, cfg); err != nil {
		return nil, NewError("binding", "bind", err)
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like [Load] but panics on error.
func MustLoad(ctx context.Context, sources ...Source) *Config {
	cfg, err := Load(ctx, sources...)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Validate checks every field against its validate tag.
func (c *Config) Validate() error {
	err := validate().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewError("validation", "validate", err)
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		errs = append(errs, NewFieldError("validation", field, "validate",
			fmt.Errorf("failed on %q (value %v)", fe.ActualTag(), fe.Value())))
	}

	return errors.Join(errs...)
}

// Encode renders the configuration with the codec registered for t, using
// the same keys the sources accept.
func (c *Config) Encode(t codec.Type) ([]byte, error) {
	enc, err := codec.GetEncoder(t)
	if err != nil {
		return nil, err
	}

	return enc.Encode(c.Map())
}

// Map returns the configuration as nested maps keyed like the sources.
// Durations are rendered as strings.
func (c *Config) Map() map[string]any {
	return structToMap(reflect.ValueOf(c).Elem())
}

func structToMap(val reflect.Value) map[string]any {
	out := make(map[string]any, val.NumField())
	typ := val.Type()
	for i := range val.NumField() {
		key := typ.Field(i).Tag.Get(tagName)
		if key == "" {
			continue
		}

		field := val.Field(i)
		switch {
		case field.Kind() == reflect.Struct:
			out[key] = structToMap(field)
		case field.Type() == reflect.TypeFor[time.Duration]():
			out[key] = time.Duration(field.Int()).String()
		case field.Kind() == reflect.Slice && field.IsNil():
			out[key] = []string{}
		default:
			out[key] = field.Interface()
		}
	}

	return out
}

var validate = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get(tagName), ",")
		if name == "" || name == "-" {
			return fld.Name
		}

		return name
	})

	return v
})

// loadSources loads every source in order and merges the results.
func loadSources(ctx context.Context, sources []Source) (map[string]any, error) {
	values := make(map[string]any)
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		conf, err := src.Load(ctx)
		if err != nil {
			return nil, NewError(fmt.Sprintf("source[%d]", i), "load", err)
		}
		if conf == nil {
			continue
		}

		if err = mergo.Map(&values, normalizeMapKeys(conf), mergo.WithOverride); err != nil {
			return nil, NewError(fmt.Sprintf("source[%d]", i), "merge", err)
		}
	}

	return values, nil
}

// normalizeMapKeys lowercases keys recursively so sources merge case-insensitively.
func normalizeMapKeys(m map[string]any) map[string]any {
	normalized := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			v = normalizeMapKeys(nested)
		}
		normalized[strings.ToLower(k)] = v
	}

	return normalized
}

func decode(values map[string]any, target *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          tagName,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result: target,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err = decoder.Decode(values); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}

	return nil
}

// applyDefaults sets the default tag value on every zero-valued field.
func applyDefaults(target any) error {
	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Pointer || val.Elem().Kind() != reflect.Struct {
		return errors.New("target must be a pointer to a struct")
	}

	return setDefaults(val.Elem())
}

func setDefaults(val reflect.Value) error {
	typ := val.Type()
	for i := range val.NumField() {
		field := val.Field(i)
		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			if err := setDefaults(field); err != nil {
				return err
			}
			continue
		}

		def := typ.Field(i).Tag.Get("default")
		if def == "" || !field.IsZero() {
			continue
		}

		if err := setDefaultValue(field, def); err != nil {
			return fmt.Errorf("failed to set default for field %s: %w", typ.Field(i).Name, err)
		}
	}

	return nil
}

func setDefaultValue(field reflect.Value, def string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(def)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeFor[time.Duration]() {
			d, err := cast.ToDurationE(def)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))

			return nil
		}
		i, err := cast.ToInt64E(def)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(def)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := cast.ToBoolE(def)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported type for default tag: %s", field.Kind())
	}

	return nil
}
