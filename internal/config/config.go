// Copyright (C) 2024 The Android Open Source Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads harness settings from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"android.googlesource.com/platform/test/vts/errors"
	"android.googlesource.com/platform/test/vts/internal/adb"
	"android.googlesource.com/platform/test/vts/internal/recovery"
	"android.googlesource.com/platform/test/vts/internal/runner"
)

// Config holds harness settings. Durations are written like "20s" or "5m".
type Config struct {
	Interpreter    string        `yaml:"interpreter"`
	ModuleFlag     string        `yaml:"module_flag"`
	RunnerTimeout  time.Duration `yaml:"runner_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	SettleInterval time.Duration `yaml:"settle_interval"`
	StepPause      time.Duration `yaml:"step_pause"`
	BootTimeout    time.Duration `yaml:"boot_timeout"`

	ADB    string `yaml:"adb"`
	Serial string `yaml:"serial"`

	// ResultsDir receives streamed results. Empty means the current
	// directory.
	ResultsDir string `yaml:"results_dir"`
	// ScratchRoot is where per-invocation scratch directories are made.
	ScratchRoot string `yaml:"scratch_root"`

	// Extra fields are copied into every runner descriptor.
	Extra map[string]interface{} `yaml:"extra"`
}

// Default returns the default settings.
func Default() *Config {
	return &Config{
		Interpreter:    runner.DefaultInterpreter,
		ModuleFlag:     runner.DefaultModuleFlag,
		RunnerTimeout:  runner.DefaultTimeout,
		CommandTimeout: adb.DefaultCommandTimeout,
		MaxAttempts:    recovery.DefaultMaxAttempts,
		SettleInterval: recovery.DefaultSettleInterval,
		StepPause:      recovery.DefaultStepPause,
		BootTimeout:    adb.DefaultBootTimeout,
		ADB:            "adb",
		Extra:          map[string]interface{}{},
	}
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(b []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(b, cfg); err != nil {
		return nil, errors.Wrap(err, "bad config")
	}
	extra, err := normalize(cfg.Extra)
	if err != nil {
		return nil, errors.Wrap(err, "bad extra")
	}
	if extra == nil {
		extra = map[string]interface{}{}
	}
	cfg.Extra = extra.(map[string]interface{})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that settings are usable.
func (c *Config) Validate() error {
	if c.Interpreter == "" {
		return errors.New("interpreter is empty")
	}
	if c.ADB == "" {
		return errors.New("adb is empty")
	}
	if c.MaxAttempts <= 0 {
		return errors.Errorf("max_attempts must be positive, got %d", c.MaxAttempts)
	}
	for name, d := range map[string]time.Duration{
		"runner_timeout":  c.RunnerTimeout,
		"command_timeout": c.CommandTimeout,
		"boot_timeout":    c.BootTimeout,
	} {
		if d <= 0 {
			return errors.Errorf("%s must be positive, got %v", name, d)
		}
	}
	for name, d := range map[string]time.Duration{
		"settle_interval": c.SettleInterval,
		"step_pause":      c.StepPause,
	} {
		if d < 0 {
			return errors.Errorf("%s must not be negative, got %v", name, d)
		}
	}
	return nil
}

// normalize converts the map[interface{}]interface{} values produced by the
// YAML decoder into map[string]interface{} so that they can be encoded as
// JSON.
func normalize(v interface{}) (interface{}, error) {
	switch v := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, e := range v {
			ks, ok := k.(string)
			if !ok {
				return nil, errors.Errorf("non-string key %v", k)
			}
			ne, err := normalize(e)
			if err != nil {
				return nil, err
			}
			m[ks] = ne
		}
		return m, nil
	case map[string]interface{}:
		if v == nil {
			return nil, nil
		}
		m := make(map[string]interface{}, len(v))
		for k, e := range v {
			ne, err := normalize(e)
			if err != nil {
				return nil, errors.Wrapf(err, "in %s", k)
			}
			m[k] = ne
		}
		return m, nil
	case []interface{}:
		l := make([]interface{}, len(v))
		for i, e := range v {
			ne, err := normalize(e)
			if err != nil {
				return nil, err
			}
			l[i] = ne
		}
		return l, nil
	default:
		return v, nil
	}
}

// String renders the settings for logs.
func (c *Config) String() string {
	return fmt.Sprintf("interpreter=%s module_flag=%s runner_timeout=%v max_attempts=%d adb=%s serial=%q",
		c.Interpreter, c.ModuleFlag, c.RunnerTimeout, c.MaxAttempts, c.ADB, c.Serial)
}
