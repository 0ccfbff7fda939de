package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"isoflash/internal/eta"
)

// FileName is the optional configuration file looked up in the working directory.
const FileName = "isoflash.yaml"

var blockSizePattern = regexp.MustCompile(`^[1-9][0-9]*[kKmMgG]?$`)

type Config struct {
	Dir        string
	Extensions []string
	Image      string
	Device     string
	BlockSize  string
	ETAPolicy  string
	ConfigFile string
	Sudo       bool
	Yes        bool
	Plain      bool
	Verbose    bool
	DryRun     bool
}

type fileConfig struct {
	Dir        *string  `yaml:"dir"`
	Extensions []string `yaml:"extensions"`
	Device     *string  `yaml:"device"`
	BlockSize  *string  `yaml:"block_size"`
	ETA        *string  `yaml:"eta"`
	Sudo       *bool    `yaml:"sudo"`
	Plain      *bool    `yaml:"plain"`
	Verbose    *bool    `yaml:"verbose"`
}

func Defaults() Config {
	return Config{
		Dir:        ".",
		Extensions: []string{".iso"},
		ETAPolicy:  eta.PolicyElapsed,
		Sudo:       os.Geteuid() != 0,
	}
}

// Register defines the command line flags Load understands.
func Register(fs *pflag.FlagSet) {
	d := Defaults()
	fs.StringP("dir", "C", d.Dir, "Directory to search for image files")
	fs.StringSlice("ext", d.Extensions, "Image file extensions to offer (case-sensitive)")
	fs.StringP("image", "i", "", "Image file name to use instead of asking")
	fs.StringP("device", "d", "", "Target device identifier to use instead of asking")
	fs.String("block-size", "", "dd block size (platform default when empty)")
	fs.String("eta", d.ETAPolicy, "Time estimate policy: elapsed or rate")
	fs.String("config", "", "Configuration file (default ./"+FileName+" when present)")
	fs.Bool("sudo", d.Sudo, "Run dd, umount and eject through sudo")
	fs.BoolP("yes", "y", false, "Skip the erase confirmation")
	fs.Bool("plain", false, "Plain line output instead of the interactive progress view")
	fs.BoolP("verbose", "v", false, "Verbose output")
	fs.Bool("dry-run", false, "Print the commands that would run without running them")
}

// Load resolves the configuration. Flags win over ISOFLASH_* environment
// variables, which win over the configuration file, which wins over defaults.
func Load(fs *pflag.FlagSet, getenv func(string) string) (Config, error) {
	cfg := Defaults()
	if getenv == nil {
		getenv = os.Getenv
	}

	path, explicit := configPath(fs, getenv)
	if path != "" {
		if err := applyFile(&cfg, path, explicit); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg, getenv)
	if err := applyFlags(&cfg, fs); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if len(c.Extensions) == 0 {
		return errors.New("at least one image extension is required")
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("invalid extension %q, use a leading dot like .iso", ext)
		}
	}
	if _, err := eta.New(c.ETAPolicy); err != nil {
		return err
	}
	if c.BlockSize != "" && !blockSizePattern.MatchString(c.BlockSize) {
		return fmt.Errorf("invalid block size %q, use a number with an optional k, m or g suffix", c.BlockSize)
	}
	return nil
}

func configPath(fs *pflag.FlagSet, getenv func(string) string) (string, bool) {
	if fs != nil && fs.Changed("config") {
		path, _ := fs.GetString("config")
		return path, true
	}
	if path := envOrEmpty(getenv, "ISOFLASH_CONFIG"); path != "" {
		return path, true
	}
	dir := "."
	if fs != nil && fs.Changed("dir") {
		dir, _ = fs.GetString("dir")
	}
	return filepath.Join(dir, FileName), false
}

func applyFile(cfg *Config, path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.ConfigFile = path

	if fc.Dir != nil {
		cfg.Dir = *fc.Dir
	}
	if len(fc.Extensions) > 0 {
		cfg.Extensions = fc.Extensions
	}
	if fc.Device != nil {
		cfg.Device = *fc.Device
	}
	if fc.BlockSize != nil {
		cfg.BlockSize = *fc.BlockSize
	}
	if fc.ETA != nil {
		cfg.ETAPolicy = *fc.ETA
	}
	if fc.Sudo != nil {
		cfg.Sudo = *fc.Sudo
	}
	if fc.Plain != nil {
		cfg.Plain = *fc.Plain
	}
	if fc.Verbose != nil {
		cfg.Verbose = *fc.Verbose
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if v := envOrEmpty(getenv, "ISOFLASH_DIR"); v != "" {
		cfg.Dir = v
	}
	if v := envOrEmpty(getenv, "ISOFLASH_DEVICE"); v != "" {
		cfg.Device = v
	}
	if v := envOrEmpty(getenv, "ISOFLASH_BLOCK_SIZE"); v != "" {
		cfg.BlockSize = v
	}
	if v := envOrEmpty(getenv, "ISOFLASH_ETA"); v != "" {
		cfg.ETAPolicy = v
	}
	if v := envOrEmpty(getenv, "ISOFLASH_EXTENSIONS"); v != "" {
		cfg.Extensions = splitList(v)
	}
	if v, ok := envBool(getenv, "ISOFLASH_SUDO"); ok {
		cfg.Sudo = v
	}
	if v, ok := envBool(getenv, "ISOFLASH_PLAIN"); ok {
		cfg.Plain = v
	}
	if v, ok := envBool(getenv, "ISOFLASH_VERBOSE"); ok {
		cfg.Verbose = v
	}
}

func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	var err error
	str := func(name string, dst *string) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetBool(name)
		}
	}

	str("dir", &cfg.Dir)
	str("image", &cfg.Image)
	str("device", &cfg.Device)
	str("block-size", &cfg.BlockSize)
	str("eta", &cfg.ETAPolicy)
	boolean("sudo", &cfg.Sudo)
	boolean("yes", &cfg.Yes)
	boolean("plain", &cfg.Plain)
	boolean("verbose", &cfg.Verbose)
	boolean("dry-run", &cfg.DryRun)
	if err == nil && fs.Changed("ext") {
		cfg.Extensions, err = fs.GetStringSlice("ext")
	}
	return err
}

func envOrEmpty(getenv func(string) string, key string) string {
	return strings.TrimSpace(getenv(key))
}

func envBool(getenv func(string) string, key string) (value, ok bool) {
	switch strings.ToLower(envOrEmpty(getenv, key)) {
	case "1", "true", "yes", "y":
		return true, true
	case "0", "false", "no", "n":
		return false, true
	default:
		return false, false
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
