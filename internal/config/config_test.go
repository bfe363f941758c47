package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/umegbewe/addrconfd/pkg/addrconf"
)

const sampleConfig = `
daemon:
  notify_socket: /tmp/addrconfd.sock
logging:
  level: debug
database:
  type: sqlite
  sqlite:
    path: /tmp/leases.sqlite
policy:
  static: [resolver, nis]
  ibft: [resolver]
targets:
  nis:
    enabled: false
  default_route:
    arp_timeout: 2s
interfaces:
  - name: eth0
    family: ipv4
    mechanism: dhcp
    update: [hostname, default-route]
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "addrconfd.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Daemon.NotifySocket != "/tmp/addrconfd.sock" {
		t.Errorf("Expected notify socket override, got=%s", cfg.Daemon.NotifySocket)
	}
	if cfg.Daemon.BackupDir != "/var/lib/addrconfd/backup" || !cfg.Daemon.ReplayLeases {
		t.Errorf("Expected daemon defaults, got=%+v", cfg.Daemon)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Expected debug level with default text format, got=%+v", cfg.Logging)
	}
	if cfg.Metrics.ListenAddress != ":9110" || !cfg.Metrics.Enabled {
		t.Errorf("Expected metrics defaults, got=%+v", cfg.Metrics)
	}
	if cfg.Targets.NIS.Enabled || !cfg.Targets.Resolver.Enabled {
		t.Errorf("Expected nis disabled and resolver enabled")
	}
	if cfg.Targets.Resolver.Path != "/etc/resolv.conf" {
		t.Errorf("Expected default resolver path, got=%s", cfg.Targets.Resolver.Path)
	}
	if cfg.Targets.DefaultRoute.ARPTimeout != 2*time.Second || !cfg.Targets.DefaultRoute.ARPCheck {
		t.Errorf("Unexpected default route settings: %+v", cfg.Targets.DefaultRoute)
	}
}

func TestPolicyMapMergesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	pm, err := cfg.PolicyMap()
	if err != nil {
		t.Fatalf("PolicyMap failed: %v", err)
	}

	cases := map[addrconf.Mechanism]addrconf.TargetSet{
		addrconf.MechanismDHCP:     addrconf.AllTargets,
		addrconf.MechanismStatic:   addrconf.NewTargetSet(addrconf.TargetResolver, addrconf.TargetNIS),
		addrconf.MechanismIBFT:     addrconf.NewTargetSet(addrconf.TargetResolver),
		addrconf.MechanismAutoconf: 0,
	}
	for m, want := range cases {
		if got := pm.PolicyMask(m); got != want {
			t.Errorf("%s: expected %s, got=%s", m, want, got)
		}
	}
}

func TestRequests(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	reqs, err := cfg.Requests()
	if err != nil {
		t.Fatalf("Requests failed: %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("Expected 1 request, got=%d", len(reqs))
	}
	r := reqs[0]
	if r.Interface != "eth0" || r.Family != addrconf.FamilyIPv4 || r.Mechanism != addrconf.MechanismDHCP {
		t.Errorf("Unexpected request slot: %+v", r)
	}
	if r.Update != addrconf.NewTargetSet(addrconf.TargetHostname, addrconf.TargetDefaultRoute) {
		t.Errorf("Unexpected update mask: %s", r.Update)
	}
}

func TestParseRejectsUnknownNames(t *testing.T) {
	bad := []string{
		"policy:\n  carrier-pigeon: [resolver]\n",
		"policy:\n  dhcp: [ntp]\n",
		"interfaces:\n  - name: eth0\n    family: ipx\n    mechanism: dhcp\n",
		"database:\n  type: mysql\n",
		"logging:\n  format: xml\n",
	}
	for _, doc := range bad {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("Expected error for config %q", doc)
		}
	}
}
