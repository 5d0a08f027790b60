package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/edgeflow/modgate/internal/api"
	"github.com/edgeflow/modgate/internal/buffer"
	"github.com/edgeflow/modgate/internal/config"
	"github.com/edgeflow/modgate/internal/diagnostics"
	"github.com/edgeflow/modgate/internal/logger"
	"github.com/edgeflow/modgate/internal/opcua"
	"github.com/edgeflow/modgate/internal/project"
	"github.com/edgeflow/modgate/internal/projectstore"
	"github.com/edgeflow/modgate/internal/runtime"
)

// Version is set by the build.
var Version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to the gateway config file")
	flag.Parse()

	fmt.Printf("modgate v%s starting\n", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		LogDir:     cfg.Logger.LogDir,
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 7,
		Compress:   true,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	sink := diagnostics.NewSink()
	hub := diagnostics.NewHub()
	go hub.Run()
	hub.Attach(sink)
	logger.SetBroadcaster(func(level, message, source string, fields map[string]interface{}) {
		ctx := make(map[string]interface{}, len(fields)+2)
		for k, v := range fields {
			ctx[k] = v
		}
		ctx["level"] = level
		ctx["source"] = source
		sink.Publish(time.Now().Unix(), message, ctx)
	})

	store, err := projectstore.New("./data/projects", cfg.Project.WorkingCopy)
	if err != nil {
		log.Fatal("init project store", zap.Error(err))
	}

	p, err := loadInitialProject(cfg, store, log)
	if err != nil {
		log.Fatal("load project", zap.Error(err))
	}

	buf := buffer.New()
	monitor := runtime.New(buf, sink, cfg.Modbus.MaxRegistersPerBatch, cfg.Modbus.MaxCoilsPerBatch)

	bridge := opcua.New(opcua.Config{
		Host:             cfg.OPCUA.Host,
		Port:             cfg.OPCUA.Port,
		AppName:          cfg.OPCUA.AppName,
		PublishInterval:  time.Duration(cfg.OPCUA.PublishIntervalMS) * time.Millisecond,
		SecurityPolicies: cfg.OPCUA.SecurityPolicies,
		AllowAnonymous:   cfg.OPCUA.Authentication.AllowAnonymous,
		Username:         cfg.OPCUA.Authentication.Username,
		Password:         cfg.OPCUA.Authentication.Password,
		CertDir:          cfg.OPCUA.Certificate.Dir,
		CertValidityDays: cfg.OPCUA.Certificate.ValidityDays,
	}, buf, monitor.Router())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reload := &reloader{monitor: monitor, bridge: bridge, ctx: ctx, log: log}

	if err := monitor.Start(p); err != nil {
		log.Fatal("start runtime monitor", zap.Error(err))
	}
	if err := bridge.Start(ctx, p); err != nil {
		log.Fatal("start opc ua bridge", zap.Error(err))
	}

	var cronRunner *cron.Cron
	if cfg.Project.ReloadCron != "" {
		cronRunner = cron.New()
		if _, err := cronRunner.AddFunc(cfg.Project.ReloadCron, func() {
			fresh, err := project.Load(cfg.Project.Path)
			if err != nil {
				log.Warn("scheduled reload: load project failed", zap.Error(err))
				return
			}
			if err := reload.Reload(fresh); err != nil {
				log.Warn("scheduled reload failed", zap.Error(err))
			}
		}); err != nil {
			log.Warn("invalid reload_cron expression", zap.String("expr", cfg.Project.ReloadCron), zap.Error(err))
		} else {
			cronRunner.Start()
		}
	}

	srv := api.New(buf, monitor, bridge, store, hub, sink, log, reload.Reload)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	go func() {
		log.Info("status API listening", zap.String("addr", addr))
		if err := srv.Listen(addr); err != nil {
			log.Error("status API stopped", zap.Error(err))
		}
	}()

	waitForShutdown(log)

	if cronRunner != nil {
		cronRunner.Stop()
	}
	cancel()
	bridge.Stop()
	monitor.Stop()
	_ = srv.Shutdown()
	log.Info("modgate stopped")
}

// loadInitialProject prefers an unsaved working copy from a previous run,
// falling back to the configured project path.
func loadInitialProject(cfg *config.Config, store *projectstore.Store, log *zap.Logger) (*project.Project, error) {
	if wc, ok, err := store.LoadWorkingCopy(); err == nil && ok {
		log.Info("resumed project from working copy")
		return wc, nil
	} else if err != nil {
		log.Warn("failed to read working copy, falling back to configured path", zap.Error(err))
	}
	return project.Load(cfg.Project.Path)
}

// reloader restarts the runtime monitor and rebuilds the OPC UA node tree
// from a freshly loaded project document, without restarting the process.
type reloader struct {
	monitor *runtime.Monitor
	bridge  *opcua.Bridge
	ctx     context.Context
	log     *zap.Logger
}

func (r *reloader) Reload(p *project.Project) error {
	r.monitor.Stop()
	if err := r.monitor.Start(p); err != nil {
		return err
	}

	done := make(chan error, 1)
	r.bridge.ReloadTagsAsync(p, func(err error) { done <- err })
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		r.log.Warn("opc ua reload timed out waiting for completion callback")
		return nil
	}
}

func waitForShutdown(log *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutdown signal received", zap.String("signal", sig.String()))
}
