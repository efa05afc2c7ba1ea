package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"hausprox/admin"
	"hausprox/button"
	"hausprox/clock"
	"hausprox/controller"
	"hausprox/door"
	"hausprox/eventpipe"
	"hausprox/indicator"
	"hausprox/metrics"
	"hausprox/mqtt"
	"hausprox/reader"
)

// Config is the main configuration structure for hausprox.
type Config struct {
	// Admin console password
	Password string `yaml:"password"`

	// Unlock times
	OpenDoorLen  Seconds `yaml:"open_door_len"`
	OpenHouseLen Seconds `yaml:"open_house_len"`

	// General settings
	ClientID   string `yaml:"client_id"`
	CardDB     string `yaml:"card_db"`
	LogDir     string `yaml:"log_dir"`
	OpenSecret string `yaml:"open_secret"`

	// Hardware
	Reader    reader.Config    `yaml:"reader"`
	Door      door.Config      `yaml:"door"`
	Indicator indicator.Config `yaml:"indicator"`
	Button    button.Config    `yaml:"button"`
	Clock     clock.Config     `yaml:"clock"`

	// Services
	MQTT      mqtt.Config      `yaml:"mqtt"`
	Metrics   metrics.Config   `yaml:"metrics"`
	Admin     admin.Config     `yaml:"admin"`
	EventPipe eventpipe.Config `yaml:"event_pipe"`
}

// Seconds is a duration written either as a number of seconds or as a Go
// duration string ("30s", "3h").
type Seconds time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Seconds) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = Seconds(time.Duration(n) * time.Second)
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q", raw)
	}
	*s = Seconds(d)
	return nil
}

// Duration returns s as a time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(s)
}

// DefaultConfig returns the settings used for anything the file leaves out.
func DefaultConfig() Config {
	return Config{
		OpenDoorLen:  Seconds(controller.DefaultDurations.DoorEntry),
		OpenHouseLen: Seconds(controller.DefaultDurations.OpenHouse),
		ClientID:     "hausprox",
		CardDB:       "cards.txt",
		LogDir:       ".",
	}
}

// Durations returns the controller's unlock times.
func (c *Config) Durations() controller.Durations {
	return controller.Durations{
		DoorEntry: c.OpenDoorLen.Duration(),
		OpenHouse: c.OpenHouseLen.Duration(),
	}
}

// LoadConfig reads the config file at path over the defaults. A missing file
// leaves the defaults in place. Unrecognized top-level keys are logged and
// ignored.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("Config %s not found, using defaults", path)
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	for _, key := range unknownKeys(data) {
		log.Printf("Invalid config: %s", key)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// unknownKeys returns the top-level keys in data that Config has no field for.
func unknownKeys(data []byte) []string {
	var top yaml.MapSlice
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil
	}

	known := map[string]bool{}
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("yaml"), ",")
		known[name] = true
	}

	var out []string
	for _, item := range top {
		key := fmt.Sprint(item.Key)
		if !known[key] {
			out = append(out, key)
		}
	}
	return out
}
