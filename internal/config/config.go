package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"vn310d/internal/vectornav"
)

type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	VN310   VN310Config   `yaml:"vn310"`
	GPIO    GPIOConfig    `yaml:"gpio"`
	Routing RoutingConfig `yaml:"routing"`
	Logging LoggingConfig `yaml:"logging"`
	Web     WebConfig     `yaml:"web"`
}

type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

type VN310Config struct {
	// Checksum is none, 8bit or 16bit.
	Checksum         string        `yaml:"checksum"`
	ValidateChecksum *bool         `yaml:"validate_checksum"`
	Tick             time.Duration `yaml:"tick"`
	SendPose         bool          `yaml:"send_pose"`
	UARTStream       bool          `yaml:"uart_stream"`
	ConfigureOnStart bool          `yaml:"configure_on_start"`
}

// ChecksumMode is the parsed form of Checksum. Load has already validated it.
func (c VN310Config) ChecksumMode() vectornav.ChecksumMode {
	m, _ := vectornav.ParseChecksumMode(c.Checksum)
	return m
}

// Validate reports whether inbound text frames are checked. Default true.
func (c VN310Config) Validate() bool {
	return c.ValidateChecksum == nil || *c.ValidateChecksum
}

// GPIOConfig pins are line offsets on Chip. Zero disables the line.
type GPIOConfig struct {
	Chip        string `yaml:"chip"`
	PowerEnable int    `yaml:"power_enable"`
	PriREnL     int    `yaml:"pri_r_en_l"`
	PriDEn      int    `yaml:"pri_d_en"`
	SecREnL     int    `yaml:"sec_r_en_l"`
	SecDEn      int    `yaml:"sec_d_en"`
}

func (g GPIOConfig) Enabled() bool {
	return g.PowerEnable != 0 || g.PriREnL != 0 || g.PriDEn != 0 || g.SecREnL != 0 || g.SecDEn != 0
}

type RoutingConfig struct {
	// Broker is tcp://, ssl://, ws:// (MQTT) or udp://host:port. Empty
	// disables publishing.
	Broker      string        `yaml:"broker"`
	TopicPrefix string        `yaml:"topic_prefix"`
	ClientID    string        `yaml:"client_id"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Scheme is the lower-cased broker URL scheme, or "" when routing is off.
func (r RoutingConfig) Scheme() string {
	if r.Broker == "" {
		return ""
	}
	u, err := url.Parse(r.Broker)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

type LoggingConfig struct {
	Level  string        `yaml:"level"`
	Format string        `yaml:"format"`
	File   LogFileConfig `yaml:"file"`
}

type LogFileConfig struct {
	Filename   string `yaml:"filename"`
	MaxSizeMB  int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

type WebConfig struct {
	Enable *bool  `yaml:"enable"`
	Listen string `yaml:"listen"`
}

func (w WebConfig) Enabled() bool {
	return w.Enable == nil || *w.Enable
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		var te *yaml.TypeError
		if errors.As(err, &te) {
			msgs := stripLines(te.Errors)
			if allUnknownField(msgs) {
				return Config{}, fmt.Errorf("config contains unknown fields: %s", strings.Join(msgs, "; "))
			}
			return Config{}, fmt.Errorf("config: %s", strings.Join(msgs, "; "))
		}
		return Config{}, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Serial.Device == "" {
		return fmt.Errorf("serial.device is required")
	}
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = 115200
	}
	if !vectornav.IsValidBaudRate(cfg.Serial.Baud) {
		return fmt.Errorf("serial.baud %d is not supported by the device", cfg.Serial.Baud)
	}

	if _, err := vectornav.ParseChecksumMode(cfg.VN310.Checksum); err != nil {
		return fmt.Errorf("vn310.checksum must be one of none, 8bit, 16bit")
	}
	if cfg.VN310.Tick == 0 {
		cfg.VN310.Tick = 10 * time.Millisecond
	}
	if cfg.VN310.Tick < 0 {
		return fmt.Errorf("vn310.tick must be > 0")
	}

	if cfg.GPIO.Enabled() && cfg.GPIO.Chip == "" {
		cfg.GPIO.Chip = "gpiochip0"
	}
	for name, v := range map[string]int{
		"gpio.power_enable": cfg.GPIO.PowerEnable,
		"gpio.pri_r_en_l":   cfg.GPIO.PriREnL,
		"gpio.pri_d_en":     cfg.GPIO.PriDEn,
		"gpio.sec_r_en_l":   cfg.GPIO.SecREnL,
		"gpio.sec_d_en":     cfg.GPIO.SecDEn,
	} {
		if v < 0 {
			return fmt.Errorf("%s must be >= 0", name)
		}
	}

	if cfg.Routing.Broker != "" {
		switch cfg.Routing.Scheme() {
		case "tcp", "ssl", "tls", "ws", "wss":
			if cfg.Routing.TopicPrefix == "" {
				cfg.Routing.TopicPrefix = "acon"
			}
			if cfg.Routing.ClientID == "" {
				// Brokers drop the older session on a duplicate id.
				cfg.Routing.ClientID = "vn310d-" + uuid.NewString()[:8]
			}
		case "udp":
			u, _ := url.Parse(cfg.Routing.Broker)
			if u.Port() == "" {
				return fmt.Errorf("routing.broker udp address requires a port")
			}
		default:
			return fmt.Errorf("routing.broker scheme must be tcp, ssl, ws or udp")
		}
	}
	if cfg.Routing.Timeout <= 0 {
		cfg.Routing.Timeout = 5 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	switch cfg.Logging.Format {
	case "":
		cfg.Logging.Format = "console"
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be 'console' or 'json'")
	}
	if cfg.Logging.File.Filename != "" {
		if cfg.Logging.File.MaxSizeMB <= 0 {
			cfg.Logging.File.MaxSizeMB = 10
		}
		if cfg.Logging.File.MaxBackups <= 0 {
			cfg.Logging.File.MaxBackups = 3
		}
		if cfg.Logging.File.MaxAgeDays <= 0 {
			cfg.Logging.File.MaxAgeDays = 7
		}
	}

	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}
	return nil
}

var yamlLinePrefix = regexp.MustCompile(`^line \d+: `)

func stripLines(msgs []string) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = yamlLinePrefix.ReplaceAllString(m, "")
	}
	return out
}

func allUnknownField(msgs []string) bool {
	for _, m := range msgs {
		if !strings.Contains(m, " not found in type ") {
			return false
		}
	}
	return len(msgs) > 0
}
