package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"gopkg.in/yaml.v2"

	"github.com/umegbewe/addrconfd/pkg/addrconf"
)

type Config struct {
	Daemon struct {
		NotifySocket string `yaml:"notify_socket" default:"/run/addrconfd/notify.sock"`
		BackupDir    string `yaml:"backup_dir" default:"/var/lib/addrconfd/backup"`
		ReplayLeases bool   `yaml:"replay_leases" default:"true"`
	} `yaml:"daemon"`
	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"text"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled       bool   `yaml:"enabled" default:"true"`
		ListenAddress string `yaml:"listen_address" default:":9110"`
	} `yaml:"metrics"`
	Database struct {
		Type string `yaml:"type" default:"bolt"`
		Bolt struct {
			Path string `yaml:"path" default:"/var/lib/addrconfd/leases.db"`
		} `yaml:"bolt"`
		Sqlite struct {
			Path string `yaml:"path" default:"/var/lib/addrconfd/leases.sqlite"`
		} `yaml:"sqlite"`
		Redis struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db" default:"0"`
		} `yaml:"redis"`
	} `yaml:"database"`
	Policy  map[string][]string `yaml:"policy"`
	Targets struct {
		Hostname struct {
			Enabled bool `yaml:"enabled" default:"true"`
		} `yaml:"hostname"`
		Resolver struct {
			Enabled bool   `yaml:"enabled" default:"true"`
			Path    string `yaml:"path" default:"/etc/resolv.conf"`
		} `yaml:"resolver"`
		NIS struct {
			Enabled bool   `yaml:"enabled" default:"true"`
			Path    string `yaml:"path" default:"/etc/yp.conf"`
		} `yaml:"nis"`
		DefaultRoute struct {
			Enabled    bool          `yaml:"enabled" default:"true"`
			ARPCheck   bool          `yaml:"arp_check" default:"true"`
			ARPTimeout time.Duration `yaml:"arp_timeout" default:"500ms"`
		} `yaml:"default_route"`
	} `yaml:"targets"`
	Interfaces []InterfaceRequest `yaml:"interfaces"`
}

// InterfaceRequest attaches a request mask to one interface slot at startup.
type InterfaceRequest struct {
	Name      string   `yaml:"name"`
	Family    string   `yaml:"family"`
	Mechanism string   `yaml:"mechanism"`
	Update    []string `yaml:"update"`
}

// DefaultPolicy applies to mechanisms the policy section does not mention.
var DefaultPolicy = addrconf.PolicyMap{
	addrconf.MechanismDHCP: addrconf.AllTargets,
	addrconf.MechanismIBFT: addrconf.AllTargets,
}

func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %v", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	err := yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration YAML: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Type {
	case "bolt", "sqlite", "redis":
	default:
		return fmt.Errorf("unsupported database type %q", c.Database.Type)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.Logging.Format)
	}
	if c.Daemon.NotifySocket == "" {
		return fmt.Errorf("daemon.notify_socket must be set")
	}
	if _, err := c.PolicyMap(); err != nil {
		return err
	}
	if _, err := c.Requests(); err != nil {
		return err
	}
	return nil
}

// PolicyMap resolves the policy section on top of DefaultPolicy.
func (c *Config) PolicyMap() (addrconf.PolicyMap, error) {
	pm := make(addrconf.PolicyMap, len(DefaultPolicy))
	for m, set := range DefaultPolicy {
		pm[m] = set
	}
	for name, targets := range c.Policy {
		m, err := addrconf.ParseMechanism(name)
		if err != nil {
			return nil, fmt.Errorf("policy: %w", err)
		}
		set, err := addrconf.ParseTargetSet(targets)
		if err != nil {
			return nil, fmt.Errorf("policy %s: %w", name, err)
		}
		pm[m] = set
	}
	return pm, nil
}

type Request struct {
	Interface string
	addrconf.Request
}

func (c *Config) Requests() ([]Request, error) {
	reqs := make([]Request, 0, len(c.Interfaces))
	for _, ir := range c.Interfaces {
		if ir.Name == "" {
			return nil, fmt.Errorf("interfaces: entry without name")
		}
		f, err := addrconf.ParseFamily(ir.Family)
		if err != nil {
			return nil, fmt.Errorf("interfaces %s: %w", ir.Name, err)
		}
		m, err := addrconf.ParseMechanism(ir.Mechanism)
		if err != nil {
			return nil, fmt.Errorf("interfaces %s: %w", ir.Name, err)
		}
		set, err := addrconf.ParseTargetSet(ir.Update)
		if err != nil {
			return nil, fmt.Errorf("interfaces %s: %w", ir.Name, err)
		}
		reqs = append(reqs, Request{
			Interface: ir.Name,
			Request:   addrconf.Request{Mechanism: m, Family: f, Update: set},
		})
	}
	return reqs, nil
}
