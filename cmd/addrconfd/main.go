package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/umegbewe/addrconfd/internal/config"
	"github.com/umegbewe/addrconfd/pkg/server"
)

func main() {
	configFile := flag.String("conf", "/etc/addrconfd/addrconfd.yaml", "Path to the configuration file")
	flag.Parse()

	if envConfig := os.Getenv("ADDRCONFD_CONFIG_PATH"); envConfig != "" {
		*configFile = envConfig
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	srv, err := server.InitServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create addrconf server: %v", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		srv.Shutdown()
	}()

	err = srv.Start()
	if err != nil {
		log.Fatalf("Failed to start addrconf server: %v", err)
	}
	srv.Shutdown()
}
