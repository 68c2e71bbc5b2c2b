package main

import (
	"io"
	"log/slog"
	"os"
	"time"

	"library-client/application/http"
	"library-client/application/library"
	"library-client/transport/tcp"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the libclient configuration file.
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port uint16 `yaml:"port"`
	} `yaml:"server"`

	Timeout struct {
		Dial  time.Duration `yaml:"dial"`
		Read  time.Duration `yaml:"read"`
		Write time.Duration `yaml:"write"`
	} `yaml:"timeout"`

	Limits struct {
		MaxHeaderBytes   uint `yaml:"max_header_bytes"`
		MaxResponseBytes uint `yaml:"max_response_bytes"`
	} `yaml:"limits"`

	Log struct {
		Level slog.Level `yaml:"level"`
	} `yaml:"log"`
}

func DefaultConfig() *Config {
	c := new(Config)
	c.Server.Host = library.DefaultOptions.Host
	c.Server.Port = library.DefaultOptions.Port
	c.Timeout.Dial = tcp.DefaultDialOptions.Timeout
	c.Timeout.Read = http.DefaultReadOptions.Timeout
	c.Timeout.Write = http.DefaultExchangeOptions.WriteTimeout
	c.Limits.MaxHeaderBytes = http.DefaultReadOptions.MaxHeaderBytes
	c.Limits.MaxResponseBytes = http.DefaultReadOptions.MaxResponseBytes
	c.Log.Level = slog.LevelWarn
	return c
}

// LoadConfig reads the file at path. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrap(err, "opening config")
	}
	defer f.Close()

	return ReadConfig(f)
}

// ReadConfig parses configuration on top of the defaults.
func ReadConfig(r io.Reader) (*Config, error) {
	c := DefaultConfig()
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err := d.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "decoding config")
	}
	return c, nil
}

func (c *Config) DialOptions() tcp.DialOptions {
	opts := tcp.DefaultDialOptions
	opts.Timeout = c.Timeout.Dial
	return opts
}

func (c *Config) LibraryOptions() library.Options {
	opts := library.DefaultOptions
	opts.Host = c.Server.Host
	opts.Port = c.Server.Port

	opts.Exchange.WriteTimeout = c.Timeout.Write
	opts.Exchange.Read.Timeout = c.Timeout.Read
	opts.Exchange.Read.MaxHeaderBytes = c.Limits.MaxHeaderBytes
	opts.Exchange.Read.MaxResponseBytes = c.Limits.MaxResponseBytes
	return opts
}
