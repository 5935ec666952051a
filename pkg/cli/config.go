package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/pion/webrtc/v3"

	openairealtime "github.com/haivivi/rtcall/pkg/openai-realtime"
)

const (
	// DefaultBaseDir is the configuration directory under $HOME.
	DefaultBaseDir = ".rtcall"
	// DefaultConfigFile is the configuration filename.
	DefaultConfigFile = "config.yaml"

	// EnvConfig overrides the config file path.
	EnvConfig = "RTCALL_CONFIG"
	// EnvAPIKey is used when the context has no API key.
	EnvAPIKey = "OPENAI_API_KEY"
)

// Config is the rtcall configuration file: a set of named contexts and the
// one in use, similar to kubectl.
type Config struct {
	CurrentContext string              `yaml:"current_context,omitempty"`
	Contexts       map[string]*Context `yaml:"contexts,omitempty"`

	path string
}

// Context holds the account and session defaults of one environment.
type Context struct {
	Name string `json:"name" yaml:"name"`

	APIKey       string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL      string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Organization string `json:"organization,omitempty" yaml:"organization,omitempty"`
	Project      string `json:"project,omitempty" yaml:"project,omitempty"`

	Model                string  `json:"model,omitempty" yaml:"model,omitempty"`
	Voice                string  `json:"voice,omitempty" yaml:"voice,omitempty"`
	Instructions         string  `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	Temperature          float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxConversationItems int     `json:"max_conversation_items,omitempty" yaml:"max_conversation_items,omitempty"`

	// Timeout bounds one call negotiation, in seconds.
	Timeout int `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// ICEServers are STUN/TURN URLs. Empty selects the default STUN server.
	ICEServers []string `json:"ice_servers,omitempty" yaml:"ice_servers,omitempty"`
}

// DefaultConfigPath returns $RTCALL_CONFIG or ~/.rtcall/config.yaml.
func DefaultConfigPath() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DefaultBaseDir, DefaultConfigFile), nil
}

// LoadConfig loads the configuration from path, or from DefaultConfigPath
// when path is empty. A missing file yields an empty configuration; it is
// created on the first Save.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := &Config{
		Contexts: make(map[string]*Context),
		path:     path,
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	for name, ctx := range cfg.Contexts {
		if ctx == nil {
			ctx = &Context{}
			cfg.Contexts[name] = ctx
		}
		ctx.Name = name
	}
	return cfg, nil
}

// Save writes the configuration with owner-only permissions, since it
// holds API keys.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.path
}

// AddContext adds or replaces a context. The first context added becomes
// the current one.
func (c *Config) AddContext(name string, ctx *Context) error {
	if name == "" {
		return errors.New("context name is required")
	}
	ctx.Name = name
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
	return c.Save()
}

// DeleteContext removes a context.
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext sets the current context.
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// ResolveContext returns the named context, or the current context when
// name is empty. Without any configured context it returns an empty one,
// so that flags and the environment can still supply everything.
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name == "" {
		name = c.CurrentContext
	}
	if name == "" {
		return &Context{}, nil
	}
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// ListContexts returns the context names in order.
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ContextKeys lists the keys accepted by Context.Set.
var ContextKeys = []string{
	"api_key", "base_url", "organization", "project",
	"model", "voice", "instructions", "temperature",
	"max_conversation_items", "timeout", "ice_servers",
}

// Set assigns one field by its YAML key. ice_servers takes a comma
// separated list.
func (ctx *Context) Set(key, value string) error {
	switch key {
	case "api_key":
		ctx.APIKey = value
	case "base_url":
		ctx.BaseURL = value
	case "organization":
		ctx.Organization = value
	case "project":
		ctx.Project = value
	case "model":
		ctx.Model = value
	case "voice":
		ctx.Voice = value
	case "instructions":
		ctx.Instructions = value
	case "temperature":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("temperature: %w", err)
		}
		ctx.Temperature = v
	case "max_conversation_items":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("max_conversation_items: %w", err)
		}
		ctx.MaxConversationItems = v
	case "timeout":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		ctx.Timeout = v
	case "ice_servers":
		ctx.ICEServers = nil
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				ctx.ICEServers = append(ctx.ICEServers, s)
			}
		}
	default:
		return fmt.Errorf("unknown key %q (valid: %s)", key, strings.Join(ContextKeys, ", "))
	}
	return nil
}

// ResolveAPIKey returns the context key, falling back to $OPENAI_API_KEY.
func (ctx *Context) ResolveAPIKey() string {
	if ctx.APIKey != "" {
		return ctx.APIKey
	}
	return os.Getenv(EnvAPIKey)
}

// SessionConfig returns the session defaults of the context.
func (ctx *Context) SessionConfig() openairealtime.SessionConfig {
	return openairealtime.SessionConfig{
		Model:                ctx.Model,
		Voice:                ctx.Voice,
		Instructions:         ctx.Instructions,
		Temperature:          ctx.Temperature,
		MaxConversationItems: ctx.MaxConversationItems,
	}.WithDefaults()
}

// ICEConfig returns the ICE servers of the context.
func (ctx *Context) ICEConfig() []webrtc.ICEServer {
	if len(ctx.ICEServers) == 0 {
		return openairealtime.DefaultICEServers
	}
	return []webrtc.ICEServer{{URLs: slices.Clone(ctx.ICEServers)}}
}

// NegotiationTimeout returns the call timeout, 30s when unset.
func (ctx *Context) NegotiationTimeout() time.Duration {
	if ctx.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(ctx.Timeout) * time.Second
}

// MaskAPIKey masks the API key for display.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// Masked returns a copy of ctx that is safe to print.
func (ctx *Context) Masked() *Context {
	c := *ctx
	c.APIKey = MaskAPIKey(c.APIKey)
	c.ICEServers = slices.Clone(c.ICEServers)
	return &c
}
