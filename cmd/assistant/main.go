package main

import (
	"context"
	"flag"
	"os"

	"github.com/mark3labs/mcp-go/server"

	assistant "github.com/DGMadMax/mcp-rbac"
	"github.com/DGMadMax/mcp-rbac/common/logger"
	"github.com/DGMadMax/mcp-rbac/config"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		logger.UseDevelopment()
	}

	if *configPath == "" {
		logger.Errorf("missing -config: embedding and vector store settings are required")
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("load config %s: %v", *configPath, err)
		os.Exit(1)
	}

	s, client, err := assistant.NewServer(context.Background(), cfg)
	if err != nil {
		logger.Errorf("start assistant: %v", err)
		os.Exit(1)
	}
	defer client.Close()

	logger.Infof("finsolve-assistant %s serving over stdio", assistant.Version)
	if err := server.ServeStdio(s); err != nil {
		logger.Errorf("serve: %v", err)
		os.Exit(1)
	}
}
