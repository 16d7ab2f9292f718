package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem is the file access the loader needs.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem reads the real filesystem and environment.
type OSFileSystem struct{}

// Exists reports whether path can be stat'ed.
func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadEnv loads a .env file into the process environment without
// overriding variables that are already set.
func (OSFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Files are the resolved config and .env paths. Either may be empty.
type Files struct {
	ConfigFile string
	EnvFile    string
}

// Locate finds config.yml and .env for serviceName, preferring the
// binary's cmd/<name> directory and falling back to the working directory.
func Locate(fs FileSystem, serviceName string) Files {
	var f Files
	for _, p := range configCandidates(serviceName) {
		if fs.Exists(p) {
			f.ConfigFile = p
			break
		}
	}
	for _, p := range envCandidates(serviceName) {
		if fs.Exists(p) {
			f.EnvFile = p
			break
		}
	}
	return f
}

func configCandidates(name string) []string {
	var out []string
	for _, up := range []string{"./", "../", "../../"} {
		out = append(out, up+"cmd/"+name+"/config.yml")
	}
	return append(out, "./config/config.yml", "./config.yml")
}

func envCandidates(name string) []string {
	var out []string
	for _, file := range []string{".env." + name, ".env"} {
		for _, dir := range []string{"./cmd/" + name + "/", "../cmd/" + name + "/", "./", "../", "../../"} {
			out = append(out, dir+file)
		}
	}
	return out
}

type loaderOptions struct {
	fs        FileSystem
	files     Files
	envPrefix string
}

// Option customizes LoadConfig and Load.
type Option func(*loaderOptions)

// WithFileSystem replaces the OS filesystem.
func WithFileSystem(fs FileSystem) Option {
	return func(o *loaderOptions) { o.fs = fs }
}

// WithConfigFile sets the config file instead of searching for one.
func WithConfigFile(path string) Option {
	return func(o *loaderOptions) { o.files.ConfigFile = path }
}

// WithEnvFile sets the .env file instead of searching for one.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.files.EnvFile = path }
}

// WithEnvPrefix only maps variables starting with prefix followed by an
// underscore, which is stripped before mapping.
func WithEnvPrefix(prefix string) Option {
	return func(o *loaderOptions) { o.envPrefix = strings.ToUpper(strings.TrimSuffix(prefix, "_")) }
}

// LoadConfig fills cfg from the config file, the .env file and the
// environment, in increasing order of precedence.
func LoadConfig(serviceName string, cfg any, opts ...Option) error {
	o := loaderOptions{fs: OSFileSystem{}}
	for _, opt := range opts {
		opt(&o)
	}
	located := Locate(o.fs, serviceName)
	if o.files.ConfigFile == "" {
		o.files.ConfigFile = located.ConfigFile
	}
	if o.files.EnvFile == "" {
		o.files.EnvFile = located.EnvFile
	}

	v := viper.New()
	if o.files.ConfigFile != "" {
		v.SetConfigFile(o.files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config %s: %w", o.files.ConfigFile, err)
		}
	}
	if o.files.EnvFile != "" && o.fs.Exists(o.files.EnvFile) {
		if err := o.fs.LoadEnv(o.files.EnvFile); err != nil {
			return fmt.Errorf("env file %s: %w", o.files.EnvFile, err)
		}
	}
	bindEnv(v, os.Environ(), o.envPrefix)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config for %s: %w", serviceName, err)
	}
	return nil
}

// Configurable is a config struct with defaults and validation.
type Configurable interface {
	ApplyDefaults()
	Validate() error
}

// Load allocates a T, fills it with LoadConfig, applies defaults and
// validates it.
func Load[T any, PT interface {
	*T
	Configurable
}](serviceName string, opts ...Option) (*T, error) {
	cfg := PT(new(T))
	if err := LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return (*T)(cfg), nil
}

// bindEnv sets every key an environment variable could address. Viper
// cannot know nested keys before unmarshalling, so REGISTRY_TIMEOUT_MS is
// set as registry.timeout.ms, registry.timeout_ms and registry_timeout_ms.
func bindEnv(v *viper.Viper, environ []string, prefix string) {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if prefix != "" {
			var found bool
			if key, found = strings.CutPrefix(key, prefix+"_"); !found {
				continue
			}
		}
		for _, variant := range keyVariants(key) {
			v.Set(variant, value)
		}
	}
}

// keyVariants returns every split of an underscored name into a dotted
// path whose segments may themselves contain underscores, as long as each
// split point is a dot or an underscore.
func keyVariants(envKey string) []string {
	parts := strings.Split(strings.ToLower(envKey), "_")
	if len(parts) == 1 {
		return parts
	}
	// 2^(n-1) combinations; cap to keep absurd names cheap.
	if len(parts) > 8 {
		return []string{strings.Join(parts, "_"), strings.Join(parts, ".")}
	}
	var out []string
	seps := len(parts) - 1
	for mask := 0; mask < 1<<seps; mask++ {
		var b strings.Builder
		b.WriteString(parts[0])
		for i := 1; i < len(parts); i++ {
			if mask&(1<<(i-1)) != 0 {
				b.WriteByte('.')
			} else {
				b.WriteByte('_')
			}
			b.WriteString(parts[i])
		}
		out = append(out, b.String())
	}
	return out
}
