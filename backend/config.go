package backend

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

const DefaultMOTD = "Welcome to the Howzat server."

var Config ServerConfig

func init() {
	flag.StringVar(&Config.Listen, "addr", ":26214", "game protocol listener")
	flag.StringVar(&Config.HTTP.Listen, "http", "", "websocket/status listener (disabled if empty)")
	flag.StringVar(&Config.Console.Listen, "control", "", "operator console listener (disabled if empty)")
	flag.StringVar(&Config.MOTD, "motd", DefaultMOTD, "")
}

type ServerConfig struct {
	Listen  string        `yaml:"listen"`
	MOTD    string        `yaml:"motd,omitempty"`
	HTTP    HTTPConfig    `yaml:"http,omitempty"`
	Console ConsoleConfig `yaml:"console,omitempty"`
}

type HTTPConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

type ConsoleConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

func (cfg *ServerConfig) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %s", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %s", err)
	}
	return nil
}

func (cfg *ServerConfig) String() string {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Sprintf("marshal error: %s", err)
	}
	return string(data)
}
