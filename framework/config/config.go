package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/km-arc/go-dibridge/framework/naming"
	"github.com/km-arc/go-dibridge/framework/parameters"
)

// Config is the central typed configuration struct.
type Config struct {
	App     AppConfig
	Bridge  BridgeConfig
	Inspect InspectConfig
}

type AppConfig struct {
	Name       string
	Env        string // local | production | testing
	Debug      bool
	ProjectDir string
	CacheDir   string
	LogsDir    string
	Charset    string
}

// BridgeConfig drives the transform between the two container models.
type BridgeConfig struct {
	// Separator splits nested parameter paths.
	Separator string

	// Services renames or suppresses service names between the models.
	Services naming.Table

	// CompiledGraph and RuntimeGraph are YAML files loaded into either
	// side before the transform. Empty means nothing to load.
	CompiledGraph string
	RuntimeGraph  string
}

type InspectConfig struct {
	Addr string
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	projectDir := env("APP_PROJECT_DIR", ".")
	return &Config{
		App: AppConfig{
			Name:       env("APP_NAME", "dibridge"),
			Env:        env("APP_ENV", "local"),
			Debug:      envBool("APP_DEBUG", true),
			ProjectDir: projectDir,
			CacheDir:   env("APP_CACHE_DIR", projectDir+"/var/cache"),
			LogsDir:    env("APP_LOGS_DIR", projectDir+"/var/log"),
			Charset:    env("APP_CHARSET", "UTF-8"),
		},
		Bridge: BridgeConfig{
			Separator:     env("BRIDGE_SEPARATOR", parameters.DefaultSeparator),
			Services:      ParseServices(os.Getenv("BRIDGE_SERVICES")),
			CompiledGraph: env("BRIDGE_COMPILED_GRAPH", ""),
			RuntimeGraph:  env("BRIDGE_RUNTIME_GRAPH", ""),
		},
		Inspect: InspectConfig{
			Addr: env("INSPECT_ADDR", ":8000"),
		},
	}
}

// ParseServices reads a rename table written as "from=to,other=". An empty
// target suppresses the name.
//
//	ParseServices("logger=app.logger,debug.stopwatch=")
func ParseServices(raw string) naming.Table {
	table := naming.Table{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		from, to, _ := strings.Cut(pair, "=")
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if from == "" {
			continue
		}
		if to == "" {
			table[from] = naming.Suppress()
			continue
		}
		table[from] = naming.To(to)
	}
	return table
}

// ResolveEnv replaces %env(NAME)% markers in every explicit parameter of
// store with the process environment. Unset variables keep their marker.
func ResolveEnv(store *parameters.Store) {
	lookup := func(name string) (string, bool) { return os.LookupEnv(name) }
	for _, key := range store.ExplicitKeys() {
		v, _ := store.Lookup(key)
		if r, changed := replaceEnv(v, lookup); changed {
			store.Set(key, r)
		}
	}
}

func replaceEnv(value any, lookup func(string) (string, bool)) (any, bool) {
	switch v := value.(type) {
	case string:
		r := parameters.ReplaceEnv(v, lookup)
		return r, r != v
	case map[string]any:
		out := make(map[string]any, len(v))
		changed := false
		for k, item := range v {
			r, c := replaceEnv(item, lookup)
			out[k] = r
			changed = changed || c
		}
		return out, changed
	case []any:
		out := make([]any, len(v))
		changed := false
		for i, item := range v {
			r, c := replaceEnv(item, lookup)
			out[i] = r
			changed = changed || c
		}
		return out, changed
	default:
		return value, false
	}
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
