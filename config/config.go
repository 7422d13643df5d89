/*
 *    HoneyCodec packet decoding library for TCP anomaly detection
 *
 *    Copyright (C) 2015, 2016  David Stainton
 *
 *    This program is free software: you can redistribute it and/or modify
 *    it under the terms of the GNU General Public License as published by
 *    the Free Software Foundation, either version 3 of the License, or
 *    (at your option) any later version.
 *
 *    This program is distributed in the hope that it will be useful,
 *    but WITHOUT ANY WARRANTY; without even the implied warranty of
 *    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *    GNU General Public License for more details.
 *
 *    You should have received a copy of the GNU General Public License
 *    along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package config loads the sensor configuration with viper.  The
// decoder path never reads viper directly; it sees policy through the
// codec.Policy window so tests can substitute fixed answers.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// TCPConfig holds the TCP decoder policy knobs.
type TCPConfig struct {
	// Checksums enables verification of TCP checksums while decoding.
	Checksums bool `mapstructure:"checksums"`
	// ChecksumDrops requests an active drop of segments failing
	// checksum verification; only honored in inline mode.
	ChecksumDrops bool `mapstructure:"checksum_drops"`
}

// SensorConfig holds sensor-wide mode settings.
type SensorConfig struct {
	// Inline marks the sensor as sitting on the data path, able to
	// drop and modify traffic; false means passive tap.
	Inline bool      `mapstructure:"inline"`
	TCP    TCPConfig `mapstructure:"tcp"`
}

// CaptureConfig holds packet acquisition settings.
type CaptureConfig struct {
	DAQ         string        `mapstructure:"daq"`
	Device      string        `mapstructure:"device"`
	Filename    string        `mapstructure:"filename"`
	Filter      string        `mapstructure:"filter"`
	Snaplen     int32         `mapstructure:"snaplen"`
	WireTimeout time.Duration `mapstructure:"wire_timeout"`
}

// LoggingConfig holds event and packet logging settings.
type LoggingConfig struct {
	LogDir     string `mapstructure:"log_dir"`
	ArchiveDir string `mapstructure:"archive_dir"`
	LogPackets bool   `mapstructure:"log_packets"`
}

// Config is the top-level sensor configuration.
type Config struct {
	Sensor  SensorConfig  `mapstructure:"sensor"`
	Capture CaptureConfig `mapstructure:"capture"`
	Logging LoggingConfig `mapstructure:"logging"`
	Workers int           `mapstructure:"workers"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sensor.inline", false)
	v.SetDefault("sensor.tcp.checksums", true)
	v.SetDefault("sensor.tcp.checksum_drops", false)
	v.SetDefault("capture.daq", "libpcap")
	v.SetDefault("capture.device", "eth0")
	v.SetDefault("capture.filter", "tcp")
	v.SetDefault("capture.snaplen", 65536)
	v.SetDefault("capture.wire_timeout", 3*time.Second)
	v.SetDefault("logging.log_packets", false)
	v.SetDefault("workers", 1)
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := Config{}
	// defaults always unmarshal cleanly
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads a YAML config file and unmarshals it over the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// The Policy window consulted by the TCP codec.

func (c *Config) InlineMode() bool {
	return c.Sensor.Inline
}

func (c *Config) TCPChecksums() bool {
	return c.Sensor.TCP.Checksums
}

func (c *Config) TCPChecksumDrops() bool {
	return c.Sensor.TCP.ChecksumDrops
}
