// agentbox-server is the sandbox daemon. It exposes command execution
// and file editing tools over HTTP, scoped to the configured project
// root and scratch directory.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentbox/agentbox/internal/api"
	"github.com/agentbox/agentbox/internal/audit"
	"github.com/agentbox/agentbox/internal/config"
	"github.com/agentbox/agentbox/internal/pty"
	"github.com/agentbox/agentbox/internal/sandbox"
	"github.com/agentbox/agentbox/internal/tool"
)

const version = "0.1.0"

func main() {
	log.SetFlags(log.Ltime | log.Lmicroseconds)
	log.Printf("agentbox-server %s starting", version)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("server: invalid configuration: %v", err)
	}

	auditLog, err := audit.Open(cfg.DataDir)
	if err != nil {
		log.Fatalf("server: failed to open audit log: %v", err)
	}
	defer auditLog.Close()

	mgr := sandbox.NewManager(sandbox.Options{
		Roots:          cfg.Roots(),
		DefaultTimeout: time.Duration(cfg.DefaultTimeoutSec) * time.Second,
		MaxTimeout:     time.Duration(cfg.MaxTimeoutSec) * time.Second,
		OutputLimit:    cfg.OutputLimitBytes,
		Retention:      time.Duration(cfg.RetentionSec) * time.Second,
		Logger:         auditLog,
	})
	defer mgr.Close()

	registry := tool.NewRegistry(mgr, auditLog)
	ptyMgr := pty.NewManager(cfg.ProjectRoot)
	defer ptyMgr.CloseAll()

	srv := api.NewServer(mgr, registry, ptyMgr, cfg.APIKey)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		log.Printf("server: received %v, shutting down", sig)
		srv.Close()
	}()

	log.Printf("server: project root %s, scratch %s", cfg.ProjectRoot, cfg.ScratchDir)
	if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		log.Printf("server: stopped: %v", err)
	}
}
