// Copyright © 2024 the kafka-manager-sdk authors
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

package sdk

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the coordinates of a remote management endpoint. A manager
// takes its Config at construction and never mutates it afterwards.
type Config struct {
	Host string
	Port int
}

func (c Config) validate() error {
	if c.Host == "" {
		return fmt.Errorf("host: %w", ErrInvalidArgument)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d: %w", c.Port, ErrInvalidArgument)
	}
	return nil
}

// DefaultConnectConfig returns the conventional Kafka Connect location.
func DefaultConnectConfig() Config {
	return Config{Host: "localhost", Port: 8083}
}

// DefaultRegistryConfig returns the conventional Schema Registry location.
func DefaultRegistryConfig() Config {
	return Config{Host: "localhost", Port: 8081}
}

// ConfigFromEnv reads {prefix}_HOST and {prefix}_PORT from the environment
// and overlays them on def. Unset or unparseable variables leave the
// corresponding default untouched.
func ConfigFromEnv(prefix string, def Config) Config {
	cfg := def
	if v := os.Getenv(prefix + "_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv(prefix + "_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	return cfg
}

// LoadDotEnv loads variables from a .env file in the working directory into
// the process environment, so that ConfigFromEnv picks them up. A missing
// file is not an error.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}
