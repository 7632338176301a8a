package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrConfigurationMissing is returned when a required option is empty.
var ErrConfigurationMissing = errors.New("configuration missing")

// Config holds all service configuration.
type Config struct {
	// Environment
	Environment EnvironmentConfig

	// Server
	HTTPServer HTTPServerConfig
	Logger     LoggerConfig

	// Repository sync
	Repo         RepoConfig
	GitHub       GitHubConfig
	Webhook      WebhookConfig
	Sync         SyncConfig
	Tunnel       TunnelConfig
	Housekeeping HousekeepingConfig
}

type EnvironmentConfig struct {
	Name string
}

type HTTPServerConfig struct {
	Port int
	Mode string
}

type LoggerConfig struct {
	Level        string
	Mode         string
	Encoding     string
	ColorEnabled bool
}

type RepoConfig struct {
	Owner     string
	Name      string
	Branch    string
	LocalPath string
	Remote    string
	CloneURL  string // defaults to https://github.com/<owner>/<name>.git
}

type GitHubConfig struct {
	Token             string
	APIURL            string
	RequestsPerSecond float64
}

type WebhookConfig struct {
	Secret          string
	Path            string
	AllowedIPs      []string
	RateLimitPerMin int
	Events          []string
}

type SyncConfig struct {
	PollIntervalSeconds         int
	FallbackPollIntervalSeconds int
	LocalChanges                string // stash | discard
	FetchAttempts               int
	FetchBackoff                time.Duration
	Timeout                     time.Duration
	AutoCommit                  bool
	CommitPaths                 []string
	PostSyncCommands            []string
	CommandTimeout              time.Duration
	WatchPaths                  []string
	WatchDebounce               time.Duration
	GitUserName                 string
	GitUserEmail                string
	Once                        bool // single sync then exit, no server
}

type TunnelConfig struct {
	Enabled              bool
	APIURL               string
	PublicURL            string // fixed public URL, skips the tunnel agent
	Timeout              time.Duration
	HostSuffixes         []string
	DeregisterOnShutdown bool
}

type HousekeepingConfig struct {
	ChangelogFile string
	TodoFile      string
}

// Load loads configuration using Viper.
// Config file name: config.yaml, searched in ./config, ., /etc/repo-sync/
// Command line flags in args take precedence over file and environment.
func Load(args []string) (*Config, error) {
	v := viper.New()

	flags := pflag.NewFlagSet("repo-sync", pflag.ContinueOnError)
	flags.Bool("once", false, "sync once, report the next todo item and exit")
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	if err := v.BindPFlag("sync.once", flags.Lookup("once")); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/repo-sync/")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	// Environment & Server
	cfg.Environment.Name = v.GetString("environment.name")
	cfg.HTTPServer.Port = v.GetInt("http_server.port")
	cfg.HTTPServer.Mode = v.GetString("http_server.mode")
	cfg.Logger.Level = v.GetString("logger.level")
	cfg.Logger.Mode = v.GetString("logger.mode")
	cfg.Logger.Encoding = v.GetString("logger.encoding")
	cfg.Logger.ColorEnabled = v.GetBool("logger.color_enabled")

	// Repository
	cfg.Repo.Owner = override(v, "repo.owner", "repo_owner")
	cfg.Repo.Name = override(v, "repo.name", "repo_name")
	cfg.Repo.Branch = override(v, "repo.branch", "branch")
	cfg.Repo.LocalPath = override(v, "repo.local_path", "local_path")
	cfg.Repo.Remote = v.GetString("repo.remote")
	cfg.Repo.CloneURL = v.GetString("repo.clone_url")
	if cfg.Repo.CloneURL == "" && cfg.Repo.Owner != "" && cfg.Repo.Name != "" {
		cfg.Repo.CloneURL = fmt.Sprintf("https://github.com/%s/%s.git", cfg.Repo.Owner, cfg.Repo.Name)
	}

	// GitHub
	cfg.GitHub.Token = override(v, "github.token", "github_token")
	cfg.GitHub.APIURL = v.GetString("github.api_url")
	cfg.GitHub.RequestsPerSecond = v.GetFloat64("github.requests_per_second")

	// Webhooks
	cfg.Webhook.Secret = override(v, "webhook.secret", "webhook_secret")
	cfg.Webhook.Path = v.GetString("webhook.path")
	cfg.Webhook.AllowedIPs = getList(v, "webhook.allowed_ips")
	cfg.Webhook.RateLimitPerMin = v.GetInt("webhook.rate_limit_per_min")
	cfg.Webhook.Events = getList(v, "webhook.events")
	if port := v.GetInt("webhook_port"); port != 0 {
		cfg.HTTPServer.Port = port
	}

	// Sync
	cfg.Sync.PollIntervalSeconds = v.GetInt("sync.poll_interval_seconds")
	if v.IsSet("poll_interval") {
		cfg.Sync.PollIntervalSeconds = v.GetInt("poll_interval")
	}
	cfg.Sync.FallbackPollIntervalSeconds = v.GetInt("sync.fallback_poll_interval_seconds")
	cfg.Sync.LocalChanges = v.GetString("sync.local_changes")
	cfg.Sync.FetchAttempts = v.GetInt("sync.fetch_attempts")
	cfg.Sync.FetchBackoff = v.GetDuration("sync.fetch_backoff")
	cfg.Sync.Timeout = v.GetDuration("sync.timeout")
	cfg.Sync.AutoCommit = v.GetBool("sync.auto_commit")
	cfg.Sync.CommitPaths = getList(v, "sync.commit_paths")
	cfg.Sync.PostSyncCommands = getList(v, "sync.post_sync_commands")
	cfg.Sync.CommandTimeout = v.GetDuration("sync.command_timeout")
	cfg.Sync.WatchPaths = getList(v, "sync.watch_paths")
	cfg.Sync.WatchDebounce = v.GetDuration("sync.watch_debounce")
	cfg.Sync.GitUserName = v.GetString("sync.git_user_name")
	cfg.Sync.GitUserEmail = v.GetString("sync.git_user_email")
	cfg.Sync.Once = v.GetBool("sync.once")

	// Tunnel
	cfg.Tunnel.Enabled = v.GetBool("tunnel.enabled")
	cfg.Tunnel.APIURL = v.GetString("tunnel.api_url")
	cfg.Tunnel.PublicURL = v.GetString("tunnel.public_url")
	cfg.Tunnel.Timeout = v.GetDuration("tunnel.timeout")
	cfg.Tunnel.HostSuffixes = getList(v, "tunnel.host_suffixes")
	cfg.Tunnel.DeregisterOnShutdown = v.GetBool("tunnel.deregister_on_shutdown")

	// Housekeeping
	cfg.Housekeeping.ChangelogFile = override(v, "housekeeping.changelog_file", "changelog_file")
	cfg.Housekeeping.TodoFile = override(v, "housekeeping.todo_file", "todo_file")

	return cfg
}

// Validate checks that every option the daemon cannot run without is set.
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"repo.owner", c.Repo.Owner},
		{"repo.name", c.Repo.Name},
		{"repo.branch", c.Repo.Branch},
		{"repo.local_path", c.Repo.LocalPath},
	}
	// A one-shot run serves no webhooks.
	if !c.Sync.Once {
		required = append([]struct {
			key   string
			value string
		}{{"webhook.secret", c.Webhook.Secret}}, required...)
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s", ErrConfigurationMissing, r.key)
		}
	}

	if c.Tunnel.Enabled && !c.Sync.Once && c.GitHub.Token == "" {
		return fmt.Errorf("%w: github.token (required when tunnel.enabled)", ErrConfigurationMissing)
	}

	switch c.Sync.LocalChanges {
	case "", "stash", "discard":
	default:
		return fmt.Errorf("invalid sync.local_changes %q: want stash or discard", c.Sync.LocalChanges)
	}

	if c.HTTPServer.Port <= 0 || c.HTTPServer.Port > 65535 {
		return fmt.Errorf("invalid http_server.port %d", c.HTTPServer.Port)
	}
	if !strings.HasPrefix(c.Webhook.Path, "/") {
		return fmt.Errorf("invalid webhook.path %q: must start with /", c.Webhook.Path)
	}
	return nil
}

// override returns the flat environment variable form of key when it is set.
func override(v *viper.Viper, key, flat string) string {
	if val := v.GetString(flat); val != "" {
		return val
	}
	return v.GetString(key)
}

// getList accepts YAML lists and comma-separated strings (from env).
func getList(v *viper.Viper, key string) []string {
	var raw []string
	switch val := v.Get(key).(type) {
	case nil:
		return nil
	case string:
		raw = strings.Split(val, ",")
	case []string:
		raw = val
	case []any:
		for _, item := range val {
			raw = append(raw, fmt.Sprint(item))
		}
	default:
		raw = v.GetStringSlice(key)
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment.name", "development")
	v.SetDefault("http_server.port", 8000)
	v.SetDefault("http_server.mode", "debug")
	v.SetDefault("logger.level", "debug")
	v.SetDefault("logger.mode", "debug")
	v.SetDefault("logger.encoding", "console")
	v.SetDefault("logger.color_enabled", true)

	v.SetDefault("repo.branch", "main")
	v.SetDefault("repo.remote", "origin")

	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("github.requests_per_second", 1)

	v.SetDefault("webhook.path", "/webhook")
	v.SetDefault("webhook.rate_limit_per_min", 60)
	v.SetDefault("webhook.events", []string{"push"})

	v.SetDefault("sync.poll_interval_seconds", 300)
	v.SetDefault("sync.fallback_poll_interval_seconds", 60)
	v.SetDefault("sync.local_changes", "stash")
	v.SetDefault("sync.fetch_attempts", 3)
	v.SetDefault("sync.fetch_backoff", "2s")
	v.SetDefault("sync.timeout", "2m")
	v.SetDefault("sync.auto_commit", false)
	v.SetDefault("sync.commit_paths", []string{"."})
	v.SetDefault("sync.command_timeout", "5m")
	v.SetDefault("sync.watch_debounce", "2s")
	v.SetDefault("sync.git_user_name", "Repo Sync Bot")
	v.SetDefault("sync.git_user_email", "repo-sync@users.noreply.github.com")
	v.SetDefault("sync.once", false)

	v.SetDefault("tunnel.enabled", false)
	v.SetDefault("tunnel.api_url", "http://127.0.0.1:4040")
	v.SetDefault("tunnel.timeout", "10s")
	v.SetDefault("tunnel.host_suffixes", []string{"ngrok-free.app", "ngrok-free.dev", "ngrok.app", "ngrok.io"})
	v.SetDefault("tunnel.deregister_on_shutdown", false)

	v.SetDefault("housekeeping.changelog_file", "")
	v.SetDefault("housekeeping.todo_file", "todo.md")
}
