package config

import (
	"crypto/tls"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/downfa11-org/cursus-ack/util"
	"gopkg.in/yaml.v3"
)

// Config represents the broker configuration for the ack path
type Config struct {
	// Server settings
	BrokerPort     int           `yaml:"broker_port" json:"broker.port"`
	EnableExporter bool          `yaml:"enable_exporter" json:"enable.exporter"`
	ExporterPort   int           `yaml:"exporter_port" json:"exporter.port"`
	LogLevel       util.LogLevel `yaml:"log_level" json:"log_level"`

	// Connections & framing
	MaxConnections  int    `yaml:"max_connections" json:"max.connections"`
	MaxFrameBytes   int    `yaml:"max_frame_bytes" json:"max.frame.bytes"`
	ReadTimeoutMS   int    `yaml:"read_timeout_ms" json:"read.timeout.ms"`
	CompressionType string `yaml:"compression_type" json:"compression.type"`

	// Ack worker
	AckWorkerShards int `yaml:"ack_worker_shards" json:"ack.worker.shards"`
	AckMailboxSize  int `yaml:"ack_mailbox_size" json:"ack.mailbox.size"`

	// Subscriber liveness
	ConsumerSessionTimeoutMS int `yaml:"consumer_session_timeout_ms" json:"consumer.session.timeout.ms"`
	ConsumerHeartbeatCheckMS int `yaml:"consumer_heartbeat_check_ms" json:"consumer.heartbeat.check.ms"`
	HeartbeatBufferSize      int `yaml:"heartbeat_buffer_size" json:"heartbeat.buffer.size"`

	// Security
	UseTLS      bool            `yaml:"use_tls" json:"tls.enable"`
	TLSCertPath string          `yaml:"tls_cert_path" json:"tls.cert_path"`
	TLSKeyPath  string          `yaml:"tls_key_path" json:"tls.key_path"`
	TLSCert     tls.Certificate `yaml:"-" json:"-"`
}

type flagValues struct {
	configPath      *string
	port            *string
	exporter        *string
	exporterPort    *string
	logLevel        *string
	maxConnections  *string
	maxFrameBytes   *string
	readTimeout     *string
	compression     *string
	workerShards    *string
	mailboxSize     *string
	sessionTimeout  *string
	heartbeatCheck  *string
	heartbeatBuffer *string
	tls             *string
	tlsCert         *string
	tlsKey          *string
}

// flag defaults; a flag whose value differs from its default overrides the file.
var flagDefaults = map[string]string{
	"port":                     "9000",
	"exporter":                 "true",
	"exporter-port":            "9100",
	"log-level":                "info",
	"max-connections":          "1000",
	"max-frame-bytes":          "4194304",
	"read-timeout-ms":          "300000",
	"compression":              "none",
	"ack-worker-shards":        "8",
	"ack-mailbox-size":         "1024",
	"consumer-session-timeout": "30000",
	"consumer-heartbeat-check": "5000",
	"heartbeat-buffer":         "4096",
	"tls":                      "false",
	"tls-cert":                 "",
	"tls-key":                  "",
}

func registerFlags(fs *flag.FlagSet) *flagValues {
	s := func(name, usage string) *string {
		return fs.String(name, flagDefaults[name], usage)
	}
	return &flagValues{
		configPath:      fs.String("config", "", "Path to YAML/JSON config file"),
		port:            s("port", "Broker port"),
		exporter:        s("exporter", "Enable Prometheus exporter"),
		exporterPort:    s("exporter-port", "Exporter port"),
		logLevel:        s("log-level", "Log Level (debug, info, warn, error)"),
		maxConnections:  s("max-connections", "Maximum concurrent client connections"),
		maxFrameBytes:   s("max-frame-bytes", "Maximum size of one request frame"),
		readTimeout:     s("read-timeout-ms", "Idle read timeout per connection (ms)"),
		compression:     s("compression", "Frame body compression (none, gzip, snappy, lz4)"),
		workerShards:    s("ack-worker-shards", "Number of ack worker mailboxes"),
		mailboxSize:     s("ack-mailbox-size", "Capacity of each ack worker mailbox"),
		sessionTimeout:  s("consumer-session-timeout", "Consumer session timeout in milliseconds"),
		heartbeatCheck:  s("consumer-heartbeat-check", "Heartbeat check interval in milliseconds"),
		heartbeatBuffer: s("heartbeat-buffer", "Pending subscriber heartbeat buffer size"),
		tls:             s("tls", "Enable TLS"),
		tlsCert:         s("tls-cert", "TLS certificate path"),
		tlsKey:          s("tls-key", "TLS key path"),
	}
}

// LoadConfig loads configuration from the process flags and CONFIG_PATH.
func LoadConfig() (*Config, error) {
	return Load(flag.CommandLine, os.Args[1:])
}

// Load parses args into fs, reads the optional config file and applies
// explicitly set flags on top of it.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	fv := registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" && *fv.configPath == "" {
		*fv.configPath = envPath
	}

	cfg := &Config{}
	applyFlags(cfg, fv, false)

	if *fv.configPath != "" {
		data, err := os.ReadFile(*fv.configPath)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", *fv.configPath, err)
		}

		if strings.HasSuffix(*fv.configPath, ".json") {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse json config: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse yaml config: %w", err)
			}
		}
		applyFlags(cfg, fv, true)
	}

	cfg.Normalize()
	util.SetLevel(cfg.LogLevel)

	if cfg.UseTLS {
		if cfg.TLSCertPath == "" || cfg.TLSKeyPath == "" {
			return nil, fmt.Errorf("TLS enabled but certificate or key path is empty")
		}
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertPath, cfg.TLSKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
		}
		cfg.TLSCert = cert
	}

	return cfg, nil
}

// applyFlags copies flag values into cfg. With onlyExplicit set, flags still
// at their default value are skipped so the config file wins.
func applyFlags(cfg *Config, fv *flagValues, onlyExplicit bool) {
	set := func(name string, v *string) bool {
		return !onlyExplicit || *v != flagDefaults[name]
	}

	if set("port", fv.port) {
		cfg.BrokerPort = util.ParseInt(*fv.port, 9000)
	}
	if set("exporter", fv.exporter) {
		cfg.EnableExporter = util.ParseBool(*fv.exporter, true)
	}
	if set("exporter-port", fv.exporterPort) {
		cfg.ExporterPort = util.ParseInt(*fv.exporterPort, 9100)
	}
	if set("log-level", fv.logLevel) {
		cfg.LogLevel = util.ParseLogLevel(*fv.logLevel)
	}
	if set("max-connections", fv.maxConnections) {
		cfg.MaxConnections = util.ParseInt(*fv.maxConnections, 1000)
	}
	if set("max-frame-bytes", fv.maxFrameBytes) {
		cfg.MaxFrameBytes = util.ParseInt(*fv.maxFrameBytes, 4<<20)
	}
	if set("read-timeout-ms", fv.readTimeout) {
		cfg.ReadTimeoutMS = util.ParseInt(*fv.readTimeout, 300000)
	}
	if set("compression", fv.compression) {
		cfg.CompressionType = *fv.compression
	}
	if set("ack-worker-shards", fv.workerShards) {
		cfg.AckWorkerShards = util.ParseInt(*fv.workerShards, 8)
	}
	if set("ack-mailbox-size", fv.mailboxSize) {
		cfg.AckMailboxSize = util.ParseInt(*fv.mailboxSize, 1024)
	}
	if set("consumer-session-timeout", fv.sessionTimeout) {
		cfg.ConsumerSessionTimeoutMS = util.ParseInt(*fv.sessionTimeout, 30000)
	}
	if set("consumer-heartbeat-check", fv.heartbeatCheck) {
		cfg.ConsumerHeartbeatCheckMS = util.ParseInt(*fv.heartbeatCheck, 5000)
	}
	if set("heartbeat-buffer", fv.heartbeatBuffer) {
		cfg.HeartbeatBufferSize = util.ParseInt(*fv.heartbeatBuffer, 4096)
	}
	if set("tls", fv.tls) {
		cfg.UseTLS = util.ParseBool(*fv.tls, false)
	}
	if set("tls-cert", fv.tlsCert) {
		cfg.TLSCertPath = *fv.tlsCert
	}
	if set("tls-key", fv.tlsKey) {
		cfg.TLSKeyPath = *fv.tlsKey
	}
}

func (cfg *Config) Normalize() {
	if cfg.BrokerPort <= 0 {
		cfg.BrokerPort = 9000
	}
	if cfg.ExporterPort <= 0 {
		cfg.ExporterPort = 9100
	}

	// connections
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 1000
	}
	if cfg.MaxFrameBytes < 1024 {
		cfg.MaxFrameBytes = 4 << 20
	}
	if cfg.ReadTimeoutMS < 0 {
		cfg.ReadTimeoutMS = 0
	}
	cfg.CompressionType = strings.ToLower(strings.TrimSpace(cfg.CompressionType))
	if cfg.CompressionType == "" {
		cfg.CompressionType = util.CompressionNone
	}
	if !util.IsSupportedCompression(cfg.CompressionType) {
		util.Warn("Invalid compression_type '%s', defaulting to 'none'", cfg.CompressionType)
		cfg.CompressionType = util.CompressionNone
	}

	// ack worker
	if cfg.AckWorkerShards <= 0 {
		cfg.AckWorkerShards = 8
	}
	if cfg.AckMailboxSize <= 0 {
		cfg.AckMailboxSize = 1024
	}

	// consumer liveness
	if cfg.ConsumerSessionTimeoutMS <= 0 {
		cfg.ConsumerSessionTimeoutMS = 30000
	}
	if cfg.ConsumerHeartbeatCheckMS <= 0 {
		cfg.ConsumerHeartbeatCheckMS = 5000
	}
	if cfg.ConsumerHeartbeatCheckMS >= cfg.ConsumerSessionTimeoutMS {
		util.Warn("ConsumerHeartbeatCheckMS (%d ms) >= ConsumerSessionTimeoutMS (%d ms), adjusting heartbeat to half of session timeout",
			cfg.ConsumerHeartbeatCheckMS, cfg.ConsumerSessionTimeoutMS)
		cfg.ConsumerHeartbeatCheckMS = cfg.ConsumerSessionTimeoutMS / 2
	}
	if cfg.HeartbeatBufferSize <= 0 {
		cfg.HeartbeatBufferSize = 4096
	}
}
