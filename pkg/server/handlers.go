package server

import (
	log "github.com/sirupsen/logrus"

	"github.com/umegbewe/addrconfd/internal/config"
	"github.com/umegbewe/addrconfd/pkg/addrconf"
	"github.com/umegbewe/addrconfd/pkg/sysconf"
)

// registerHandlers installs a system handler for every enabled target.
func registerHandlers(reg *addrconf.Registry, cfg *config.Config) error {
	t := cfg.Targets
	backupDir := cfg.Daemon.BackupDir

	handlers := []struct {
		target  addrconf.Target
		enabled bool
		build   func() addrconf.Handler
	}{
		{addrconf.TargetHostname, t.Hostname.Enabled, func() addrconf.Handler {
			return sysconf.NewHostnameHandler()
		}},
		{addrconf.TargetResolver, t.Resolver.Enabled, func() addrconf.Handler {
			return sysconf.NewResolverHandler(t.Resolver.Path, backupDir)
		}},
		{addrconf.TargetNIS, t.NIS.Enabled, func() addrconf.Handler {
			return sysconf.NewNISHandler(t.NIS.Path, backupDir)
		}},
		{addrconf.TargetDefaultRoute, t.DefaultRoute.Enabled, func() addrconf.Handler {
			return sysconf.NewRouteHandler(sysconf.RouteOptions{
				ARPCheck:   t.DefaultRoute.ARPCheck,
				ARPTimeout: t.DefaultRoute.ARPTimeout,
			})
		}},
	}

	for _, h := range handlers {
		if !h.enabled {
			log.Infof("[INIT] Target %s disabled", h.target)
			continue
		}
		if err := reg.Register(h.target, h.build()); err != nil {
			return err
		}
	}
	return nil
}
