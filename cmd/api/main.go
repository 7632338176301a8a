package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"repo-sync-automation/config"
	_ "repo-sync-automation/docs" // Swagger docs
	"repo-sync-automation/internal/housekeeping"
	"repo-sync-automation/internal/httpserver"
	"repo-sync-automation/internal/registrar"
	"repo-sync-automation/internal/sync"
	"repo-sync-automation/internal/trigger"
	"repo-sync-automation/internal/webhook"
	"repo-sync-automation/pkg/git"
	"repo-sync-automation/pkg/github"
	"repo-sync-automation/pkg/log"
	"repo-sync-automation/pkg/ngrok"
)

const deregisterTimeout = 10 * time.Second

// @title       Repo Sync Automation API
// @description Keeps a local working tree in sync with a GitHub branch, driven by signed webhooks.
// @version     1
// @host        localhost:8000
// @schemes     http
func main() {
	// 1. Configuration
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Println("Failed to load config: ", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Println("Invalid config: ", err)
		os.Exit(1)
	}

	// 2. Logger
	logger := log.Init(log.ZapConfig{
		Level:        cfg.Logger.Level,
		Mode:         cfg.Logger.Mode,
		Encoding:     cfg.Logger.Encoding,
		ColorEnabled: cfg.Logger.ColorEnabled,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "Starting Repo Sync Automation...")
	logger.Infof(ctx, "Environment: %s", cfg.Environment.Name)
	logger.Infof(ctx, "Repository: %s/%s@%s -> %s", cfg.Repo.Owner, cfg.Repo.Name, cfg.Repo.Branch, cfg.Repo.LocalPath)

	// 3. Sync coordinator
	repo, err := git.New(cfg.Repo.LocalPath, cfg.Repo.CloneURL, cfg.GitHub.Token, logger)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize git: %v", err)
	}

	hooks, err := postSyncHooks(cfg, logger)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize post-sync hooks: %v", err)
	}

	policy, err := sync.ParseLocalChangesPolicy(cfg.Sync.LocalChanges)
	if err != nil {
		logger.Fatalf(ctx, "Invalid sync.local_changes: %v", err)
	}

	coordinator := sync.New(repo, hooks, sync.Options{
		Remote:        cfg.Repo.Remote,
		Branch:        cfg.Repo.Branch,
		LocalChanges:  policy,
		FetchAttempts: cfg.Sync.FetchAttempts,
		FetchBackoff:  cfg.Sync.FetchBackoff,
		Timeout:       cfg.Sync.Timeout,
		AutoCommit:    cfg.Sync.AutoCommit,
		CommitPaths:   cfg.Sync.CommitPaths,
		GitUserName:   cfg.Sync.GitUserName,
		GitUserEmail:  cfg.Sync.GitUserEmail,
	}, sync.NewMetrics(), logger)
	todo := housekeeping.NewTodoReader(cfg.Repo.LocalPath, cfg.Housekeeping.TodoFile)

	if cfg.Sync.Once {
		if err := runOnce(ctx, coordinator, todo, logger); err != nil {
			logger.Errorf(ctx, "One-shot sync failed: %v", err)
			os.Exit(1)
		}
		return
	}

	// 4. Provider client and webhook registration
	gh := github.NewClient(cfg.GitHub.Token, cfg.GitHub.RequestsPerSecond)
	gh.SetAPIURL(cfg.GitHub.APIURL)

	var reg registrar.Registrar
	if cfg.Tunnel.Enabled {
		var tunnel registrar.Tunnel
		if cfg.Tunnel.PublicURL != "" {
			tunnel = registrar.StaticURL(cfg.Tunnel.PublicURL)
		} else {
			tunnel = ngrok.NewClient(cfg.Tunnel.APIURL)
		}
		reg = registrar.New(gh, tunnel, registrar.Options{
			Owner:        cfg.Repo.Owner,
			Repo:         cfg.Repo.Name,
			WebhookPath:  cfg.Webhook.Path,
			Events:       cfg.Webhook.Events,
			Timeout:      cfg.Tunnel.Timeout,
			HostSuffixes: cfg.Tunnel.HostSuffixes,
		}, logger)
	}

	// 5. Triggers
	poller := trigger.NewPoller(trigger.PollerConfig{
		Owner:    cfg.Repo.Owner,
		Repo:     cfg.Repo.Name,
		Branch:   cfg.Repo.Branch,
		Interval: time.Duration(cfg.Sync.PollIntervalSeconds) * time.Second,
	}, gh, coordinator, logger)

	var watcher *trigger.Watcher
	if len(cfg.Sync.WatchPaths) > 0 {
		watcher, err = trigger.NewWatcher(resolvePaths(cfg.Repo.LocalPath, cfg.Sync.WatchPaths), cfg.Sync.WatchDebounce, coordinator, logger)
		if err != nil {
			logger.Fatalf(ctx, "Failed to initialize file watcher: %v", err)
		}
	}

	// 6. HTTP Server
	webhookHandler := webhook.NewHandler(webhook.Config{
		Security: webhook.SecurityConfig{
			Secret:          cfg.Webhook.Secret,
			AllowedIPs:      cfg.Webhook.AllowedIPs,
			RateLimitPerMin: cfg.Webhook.RateLimitPerMin,
		},
		TrackedBranch: cfg.Repo.Branch,
	}, coordinator, logger)

	srvCfg := httpserver.Config{
		Logger:         logger,
		Port:           cfg.HTTPServer.Port,
		Mode:           cfg.HTTPServer.Mode,
		Environment:    cfg.Environment.Name,
		Repository:     cfg.Repo.Owner + "/" + cfg.Repo.Name,
		Branch:         cfg.Repo.Branch,
		WebhookPath:    cfg.Webhook.Path,
		WebhookHandler: webhookHandler,
		SyncState:      coordinator,
		Todo:           todo,
	}
	if reg != nil {
		srvCfg.Registration = reg
	}
	httpServer, err := httpserver.New(logger, srvCfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize HTTP server: %v", err)
	}

	// 7. Run
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpServer.Run(gctx)
	})

	g.Go(func() error {
		if rev, err := coordinator.Sync(gctx); err != nil {
			logger.Errorf(gctx, "Initial sync failed: %v", err)
		} else {
			logger.Infof(gctx, "Initial sync at %s", rev.Short())
		}

		if reg != nil {
			if _, err := reg.EnsureRegistered(gctx, cfg.HTTPServer.Port, cfg.Webhook.Secret); err != nil {
				logger.Errorf(gctx, "Webhook registration failed, relying on polling: %v", err)
				if !poller.Enabled() {
					poller.SetInterval(time.Duration(cfg.Sync.FallbackPollIntervalSeconds) * time.Second)
				}
			}
		}

		if gctx.Err() != nil {
			return nil
		}
		if err := poller.Start(); err != nil {
			return fmt.Errorf("start poller: %w", err)
		}
		<-gctx.Done()
		poller.Stop()
		return nil
	})

	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	var result *multierror.Error
	if err := g.Wait(); err != nil {
		result = multierror.Append(result, err)
	}

	if reg != nil && cfg.Tunnel.DeregisterOnShutdown {
		dctx, cancel := context.WithTimeout(context.Background(), deregisterTimeout)
		if err := reg.Deregister(dctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("deregister webhook: %w", err))
		}
		cancel()
	}

	if err := result.ErrorOrNil(); err != nil {
		logger.Errorf(context.Background(), "Stopped with errors: %v", err)
		os.Exit(1)
	}

	logger.Info(context.Background(), "Server stopped gracefully")
}

// postSyncHooks builds the hooks run after every sync, changelog first.
func postSyncHooks(cfg *config.Config, l log.Logger) ([]sync.Hook, error) {
	var hooks []sync.Hook
	if cfg.Housekeeping.ChangelogFile != "" {
		hooks = append(hooks, housekeeping.NewChangelogHook(cfg.Repo.LocalPath, cfg.Housekeeping.ChangelogFile, l))
	}
	for _, command := range cfg.Sync.PostSyncCommands {
		hook, err := housekeeping.NewCommandHook(cfg.Repo.LocalPath, command, cfg.Sync.CommandTimeout, l)
		if err != nil {
			return nil, fmt.Errorf("post-sync command %q: %w", command, err)
		}
		hooks = append(hooks, hook)
	}
	return hooks, nil
}

func resolvePaths(base string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		out = append(out, p)
	}
	return out
}
