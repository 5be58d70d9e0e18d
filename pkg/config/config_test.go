// Tensile Core
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Tensile Core.
//
// Tensile Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Tensile Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Tensile Core.  If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) *Instance {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), CfgFile)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))
	cfg := &Instance{
		cfgPath:  cfgPath,
		vals:     BaseDefaults,
		defaults: BaseDefaults,
	}
	require.NoError(t, cfg.Load())
	return cfg
}

func TestNewConfig_WritesDefaults(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	cfg, err := NewConfig(tempDir, BaseDefaults)
	require.NoError(t, err)

	cfgPath := filepath.Join(tempDir, CfgFile)
	assert.Equal(t, cfgPath, cfg.Path())
	assert.FileExists(t, cfgPath)

	_, err = uuid.Parse(cfg.DeviceID())
	require.NoError(t, err, "device id should be a uuid")

	assert.Equal(t, DefaultBaudRate, cfg.Serial().BaudRate)
	assert.Equal(t, DefaultAPIPort, cfg.APIPort())
	assert.False(t, cfg.Simulate())
}

func TestNewConfig_KeepsDeviceID(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	first, err := NewConfig(tempDir, BaseDefaults)
	require.NoError(t, err)

	second, err := NewConfig(tempDir, BaseDefaults)
	require.NoError(t, err)

	assert.Equal(t, first.DeviceID(), second.DeviceID())
}

//nolint:paralleltest // uses t.Setenv
func TestNewConfig_EnvOverride(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "custom", "tensile.toml")
	t.Setenv(CfgEnv, cfgPath)

	cfg, err := NewConfig(t.TempDir(), BaseDefaults)
	require.NoError(t, err)

	assert.Equal(t, cfgPath, cfg.Path())
	assert.FileExists(t, cfgPath)
}

func TestLoad_PreservesDefaultsForMissingFields(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, fmt.Sprintf("config_schema = %d\n", SchemaVersion))

	assert.Equal(t, DefaultBaudRate, cfg.vals.Serial.BaudRate)
	assert.Equal(t, "none", cfg.vals.Serial.Parity)
	assert.Equal(t, DefaultReadTimeoutMs, cfg.vals.Serial.ReadTimeoutMs)
	assert.Equal(t, GPIOSchemeBCM, cfg.vals.GPIO.Scheme)
	assert.Nil(t, cfg.vals.Service.APIPort, "getter returns the default port")
}

func TestLoad_OverridesDefaults(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, fmt.Sprintf(`config_schema = %d
debug_logging = true

[serial]
port = "/dev/ttyAMA0"
baud_rate = 9600
parity = "even"
stop_bits = 2.0
read_timeout_ms = 250
simulate = true
simulate_rate_hz = 20

[channels]
calibration_seconds = 8

[channels.labels]
ch1 = "Load"

[service]
api_port = 8080
allowed_origins = ["http://panel.local"]
api_keys = ["bench-key"]

[[service.publishers.mqtt]]
broker = "tcp://localhost:1883"
topic = "tensile/samples"
every_n = 10
`, SchemaVersion))

	s := cfg.Serial()
	assert.Equal(t, "/dev/ttyAMA0", s.Port)
	assert.Equal(t, 9600, s.BaudRate)
	assert.Equal(t, "even", s.Parity)
	assert.InDelta(t, 2.0, s.StopBits, 0)
	assert.Equal(t, DefaultDataBits, s.DataBits)

	assert.True(t, cfg.DebugLogging())
	assert.True(t, cfg.Simulate())
	assert.Equal(t, 20, cfg.SimulateRate())
	assert.Equal(t, 8*time.Second, cfg.CalibrationDuration())
	assert.Equal(t, "Load", cfg.ChannelLabel("ch1"))
	assert.Equal(t, "ch2", cfg.ChannelLabel("ch2"))
	assert.Equal(t, 8080, cfg.APIPort())
	assert.Equal(t, ":8080", cfg.APIListen())
	assert.Equal(t, []string{"http://panel.local"}, cfg.AllowedOrigins())
	assert.Equal(t, []string{"bench-key"}, cfg.APIKeys())

	pubs := cfg.GetMQTTPublishers()
	require.Len(t, pubs, 1)
	assert.Equal(t, "tcp://localhost:1883", pubs[0].Broker)
	assert.Equal(t, 10, pubs[0].EveryN)
	assert.True(t, pubs[0].IsEnabled())
}

func TestLoad_SchemaMismatch(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), CfgFile)
	require.NoError(t, os.WriteFile(cfgPath, []byte("config_schema = 99\n"), 0o600))
	cfg := &Instance{cfgPath: cfgPath, vals: BaseDefaults, defaults: BaseDefaults}

	require.ErrorIs(t, cfg.Load(), ErrSchemaMismatch)
}

func TestLoad_InvalidTOML(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), CfgFile)
	require.NoError(t, os.WriteFile(cfgPath, []byte("[serial\nport = "), 0o600))
	cfg := &Instance{cfgPath: cfgPath, vals: BaseDefaults, defaults: BaseDefaults}

	require.ErrorContains(t, cfg.Load(), "failed to unmarshal config")
}

func TestLoad_NoPath(t *testing.T) {
	t.Parallel()

	cfg := &Instance{}
	require.Error(t, cfg.Load())
	require.Error(t, cfg.Save())
}

func TestLoad_ReloadCycle(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfig(t.TempDir(), BaseDefaults)
	require.NoError(t, err)

	cfg.SetSerialPort("/dev/ttyACM0")
	cfg.SetSimulate(true)
	cfg.SetAPIPort(9999)
	require.NoError(t, cfg.Save())

	cfg.SetSerialPort("/dev/other")
	require.NoError(t, cfg.Load())

	assert.Equal(t, "/dev/ttyACM0", cfg.SerialPort())
	assert.True(t, cfg.Simulate())
	assert.Equal(t, 9999, cfg.APIPort())
}

func TestSave_OmitsNilPointerFields(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	cfg, err := NewConfig(tempDir, BaseDefaults)
	require.NoError(t, err)
	require.NoError(t, cfg.Save())

	data, err := os.ReadFile(filepath.Join(tempDir, CfgFile)) //nolint:gosec // test file path is controlled
	require.NoError(t, err)

	content := string(data)
	assert.NotContains(t, content, "api_port")
	assert.NotContains(t, content, "enabled")
	assert.Contains(t, content, "device_id")
	assert.Contains(t, content, "baud_rate = 115200")
}

func TestSetDebugLogging(t *testing.T) {
	t.Parallel()

	cfg := &Instance{}
	cfg.SetDebugLogging(true)
	assert.True(t, cfg.DebugLogging())
	cfg.SetDebugLogging(false)
	assert.False(t, cfg.DebugLogging())
}

func TestDiscoveryAndWatch_Defaults(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, "config_schema = 1\n")
	assert.True(t, cfg.DiscoveryEnabled())
	assert.True(t, cfg.WatchConfig())
	assert.Empty(t, cfg.DiscoveryInstanceName())
}

func TestDiscoveryAndWatch_FromFile(t *testing.T) {
	t.Parallel()

	cfg := writeConfig(t, `config_schema = 1

[service]
watch_config = false

[service.discovery]
enabled = false
instance_name = "bench-2"
`)
	assert.False(t, cfg.DiscoveryEnabled())
	assert.False(t, cfg.WatchConfig())
	assert.Equal(t, "bench-2", cfg.DiscoveryInstanceName())

	cfg.SetDiscoveryEnabled(true)
	cfg.SetWatchConfig(true)
	assert.True(t, cfg.DiscoveryEnabled())
	assert.True(t, cfg.WatchConfig())
}
