package server

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tmerle/sireader/internal/course"
	"github.com/tmerle/sireader/internal/tracelog"
)

// Config holds all reader configuration.
type Config struct {
	Reader  ReaderConfig    `yaml:"reader" json:"reader"`
	Server  ServerConfig    `yaml:"server" json:"server"`
	Trace   tracelog.Config `yaml:"trace" json:"trace"`
	Courses []CourseConfig  `yaml:"courses" json:"courses"`
}

type ReaderConfig struct {
	PortPath string `yaml:"port_path" json:"portPath"` // e.g. /dev/ttyUSB0
	ZeroHour string `yaml:"zero_hour" json:"zeroHour"` // "HH:MM" midnight anchor
}

type ServerConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	ListenAddr string `yaml:"listen_addr" json:"listenAddr"`
}

// CourseConfig is the on-disk form of a course definition. An IOF-XML
// importer can produce this file; the reader only consumes it.
type CourseConfig struct {
	Name        string   `yaml:"name" json:"name"`
	Codes       []uint16 `yaml:"codes" json:"codes"`
	Score       bool     `yaml:"score" json:"score"` // unordered controls
	UseBoxStart bool     `yaml:"use_box_start" json:"useBoxStart"`
	FixedStart  string   `yaml:"fixed_start" json:"fixedStart"` // "HH:MM", mass start
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Reader: ReaderConfig{
			ZeroHour: "00:00",
		},
		Server: ServerConfig{
			Enabled:    false,
			ListenAddr: ":8080",
		},
		Trace: tracelog.Config{
			Enabled: false,
			Path:    "/var/log/sireader",
		},
	}
}

// LoadConfig reads config from a YAML file, then applies environment
// variable overrides. Falls back to defaults if the file is missing.
func LoadConfig(path string) *Config {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("[config] no config at %s, using defaults", path)
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Printf("[config] error parsing %s: %v, using defaults", path, err)
			cfg = DefaultConfig()
		} else {
			log.Printf("[config] loaded from %s", path)
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// applyEnvOverrides reads environment variables and overrides config
// values. Supported: SI_PORT, SI_ZERO_HOUR, SI_LISTEN_ADDR, SI_TRACE,
// SI_TRACE_PATH.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SI_PORT"); v != "" {
		c.Reader.PortPath = v
	}
	if v := os.Getenv("SI_ZERO_HOUR"); v != "" {
		c.Reader.ZeroHour = v
	}
	if v := os.Getenv("SI_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
		c.Server.Enabled = true
	}
	if v := os.Getenv("SI_TRACE"); v != "" {
		c.Trace.Enabled = v == "1" || v == "true" || v == "yes"
	}
	if v := os.Getenv("SI_TRACE_PATH"); v != "" {
		c.Trace.Path = v
	}
}

// ZeroHourMs returns the configured zero hour as ms since local midnight.
func (c *Config) ZeroHourMs() (int64, error) {
	if c.Reader.ZeroHour == "" {
		return 0, nil
	}
	return ParseClock(c.Reader.ZeroHour)
}

// BuildCourses converts the configured course definitions into validator
// courses.
func (c *Config) BuildCourses() ([]*course.Course, error) {
	courses := make([]*course.Course, 0, len(c.Courses))
	for _, cc := range c.Courses {
		if cc.Name == "" {
			return nil, fmt.Errorf("config: course without a name")
		}
		if len(cc.Codes) == 0 {
			return nil, fmt.Errorf("config: course %q has no controls", cc.Name)
		}
		crs := &course.Course{
			Name:        cc.Name,
			Codes:       cc.Codes,
			Inline:      !cc.Score,
			UseBoxStart: cc.UseBoxStart,
		}
		if cc.FixedStart != "" {
			ms, err := ParseClock(cc.FixedStart)
			if err != nil {
				return nil, fmt.Errorf("config: course %q: %w", cc.Name, err)
			}
			crs.FixedStart = ms
		}
		courses = append(courses, crs)
	}
	return courses, nil
}

// ParseClock converts an "HH:MM" wall-clock string to ms since midnight.
func ParseClock(clock string) (int64, error) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time %q, want HH:MM", clock)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", clock)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", clock)
	}
	return int64(h)*3600_000 + int64(m)*60_000, nil
}
