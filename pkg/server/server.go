package server

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/umegbewe/addrconfd/internal/config"
	"github.com/umegbewe/addrconfd/internal/logging"
	"github.com/umegbewe/addrconfd/internal/metrics"
	"github.com/umegbewe/addrconfd/internal/storage"
	"github.com/umegbewe/addrconfd/pkg/addrconf"
)

// maxNotificationSize bounds one datagram on the notify socket.
const maxNotificationSize = 64 * 1024

type Server struct {
	Config *config.Config
	Engine *addrconf.Engine
	Store  storage.LeaseStore

	mu         sync.Mutex
	Connection *net.UnixConn
	closed     bool

	links          linkLister
	metricsEnabled bool
}

func InitServer(cfg *config.Config) (*Server, error) {
	err := logging.SetupLogging(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize lease store: %v", err)
	}

	registry := addrconf.NewRegistry()
	if err := registerHandlers(registry, cfg); err != nil {
		store.Close()
		return nil, err
	}

	server, err := New(cfg, store, registry, nil)
	if err != nil {
		store.Close()
		return nil, err
	}

	if server.metricsEnabled {
		if err := metrics.StartMetricsServer(cfg.Metrics.ListenAddress); err != nil {
			log.Warnf("Could not start metrics server: %v", err)
		} else {
			log.Infof("[INIT] Metrics server listening on %s", cfg.Metrics.ListenAddress)
		}
	}

	return server, nil
}

// New assembles a server around an already populated handler registry.
// A nil links discovers interfaces over netlink.
func New(cfg *config.Config, store storage.LeaseStore, registry *addrconf.Registry, links linkLister) (*Server, error) {
	policy, err := cfg.PolicyMap()
	if err != nil {
		return nil, err
	}
	if links == nil {
		links = nlLinks{}
	}

	s := &Server{
		Config:         cfg,
		Engine:         addrconf.NewEngine(registry, policy, addrconf.NewInterfaceTable()),
		Store:          store,
		links:          links,
		metricsEnabled: cfg.Metrics.Enabled,
	}
	log.Infof("[INIT] Managing targets: %s", s.Engine.EngineCapabilities())

	if err := s.discoverInterfaces(); err != nil {
		return nil, err
	}
	s.attachRequests()

	if cfg.Daemon.ReplayLeases {
		if err := s.replayLeases(); err != nil {
			log.Warnf("Could not replay stored leases: %v", err)
		}
	}
	return s, nil
}

func openStore(cfg *config.Config) (storage.LeaseStore, error) {
	switch cfg.Database.Type {
	case "bolt":
		if cfg.Database.Bolt.Path == "" {
			return nil, fmt.Errorf("bolt database path is required")
		}
		return storage.NewBoltStore(cfg.Database.Bolt.Path)
	case "sqlite":
		if cfg.Database.Sqlite.Path == "" {
			return nil, fmt.Errorf("sqlite database path is required")
		}
		return storage.NewSqliteStore(cfg.Database.Sqlite.Path)
	case "redis":
		return storage.NewRedisStore(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
}

func (s *Server) attachRequests() {
	reqs, err := s.Config.Requests()
	if err != nil {
		log.Warnf("Ignoring interface requests: %v", err)
		return
	}
	for i := range reqs {
		r := reqs[i]
		if err := s.Engine.OnRequest(addrconf.InterfaceRef{Name: r.Interface}, &r.Request); err != nil {
			log.Warnf("Could not attach request for %s: %v", r.Interface, err)
		}
	}
}

// Start listens on the notify socket and processes notifications one at
// a time until the socket is closed.
func (s *Server) Start() error {
	path := s.Config.Daemon.NotifySocket
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create socket directory: %v", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale socket %s: %v", path, err)
	}

	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		return fmt.Errorf("failed to listen on notify socket: %v", err)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return nil
	}
	s.Connection = conn
	s.mu.Unlock()
	defer conn.Close()

	log.Infof("[INIT] addrconfd listening on %s", path)

	buffer := make([]byte, maxNotificationSize)
	for {
		n, _, err := conn.ReadFromUnix(buffer)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				log.Infof("[INFO] Server shutting down")
				break
			}
			log.Errorf("[ERROR] Error reading from notify socket: %v", err)
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			break
		}
		s.HandleNotification(buffer[:n])
		s.mu.Unlock()
	}
	return nil
}

// Shutdown stops the notify loop and closes the lease store. A notification
// being handled is finished first. It is safe to call more than once.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	if s.Connection != nil {
		s.Connection.Close()
		os.Remove(s.Config.Daemon.NotifySocket)
	}
	if s.Store != nil {
		s.Store.Close()
	}
}
