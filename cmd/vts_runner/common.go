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

package main

import (
	"flag"

	"android.googlesource.com/platform/test/vts/internal/adb"
	"android.googlesource.com/platform/test/vts/internal/config"
	"android.googlesource.com/platform/test/vts/internal/recovery"
)

type funcValue func(string) error // implements flag.Value

func (f funcValue) Set(s string) error { return f(s) }
func (f funcValue) String() string     { return "" }

// deviceFlags holds flags shared by commands that talk to a device.
type deviceFlags struct {
	configPath string
	serial     string
}

func (d *deviceFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&d.configPath, "config", "", "YAML file with harness settings")
	f.StringVar(&d.serial, "serial", "", "serial number of the device; overrides the config file")
}

// loadConfig returns the settings selected by the flags.
func (d *deviceFlags) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if d.configPath != "" {
		var err error
		if cfg, err = config.Load(d.configPath); err != nil {
			return nil, err
		}
	}
	if d.serial != "" {
		cfg.Serial = d.serial
	}
	return cfg, nil
}

// newDevice returns the device and recoverer configured by cfg.
func newDevice(cfg *config.Config) (*adb.Device, *recovery.Recoverer) {
	dev := adb.New(cfg.ADB, cfg.Serial)
	dev.CommandTimeout = cfg.CommandTimeout
	dev.BootTimeout = cfg.BootTimeout

	rec := recovery.New(dev)
	rec.MaxAttempts = cfg.MaxAttempts
	rec.SettleInterval = cfg.SettleInterval
	rec.StepPause = cfg.StepPause
	rec.CommandTimeout = cfg.CommandTimeout
	return dev, rec
}
