// Package config loads repository configuration.
//
// A repository keeps its configuration in <metadata dir>/config.toml. A file
// given explicitly may be TOML or YAML, chosen by extension. Values missing
// from the file take the defaults below; MinIO credentials and the server
// address may also come from the environment, matching how the storage
// server is deployed.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"git.wyat.me/object-store/object"
)

const (
	DefaultMetadataDir = ".git"
	DefaultMaxDepth    = 256
	FileName           = "config.toml"
)

// Backend names a store implementation.
type Backend string

const (
	BackendLoose  Backend = "loose"
	BackendSQLite Backend = "sqlite"
	BackendBadger Backend = "badger"
	BackendMinio  Backend = "minio"
)

type Config struct {
	Core    CoreConfig    `toml:"core" yaml:"core"`
	User    UserConfig    `toml:"user" yaml:"user"`
	Storage StorageConfig `toml:"storage" yaml:"storage"`
	Log     LogConfig     `toml:"log" yaml:"log"`
	Server  ServerConfig  `toml:"server" yaml:"server"`
}

type CoreConfig struct {
	// MetadataDir is the directory below the root holding objects and refs.
	MetadataDir string `toml:"metadata_dir" yaml:"metadata_dir"`
	// Hash is sha1, sha256 or blake3.
	Hash string `toml:"hash" yaml:"hash"`
	// Compression is zlib or zstd.
	Compression string `toml:"compression" yaml:"compression"`
	// MaxDepth bounds directory nesting when writing trees.
	MaxDepth int `toml:"max_depth" yaml:"max_depth"`
}

type UserConfig struct {
	Name  string `toml:"name" yaml:"name"`
	Email string `toml:"email" yaml:"email"`
}

type StorageConfig struct {
	Backend Backend `toml:"backend" yaml:"backend"`
	// Path is the sqlite file or badger directory, relative to the
	// metadata directory.
	Path  string      `toml:"path" yaml:"path"`
	Minio MinioConfig `toml:"minio" yaml:"minio"`
}

type MinioConfig struct {
	Endpoint  string `toml:"endpoint" yaml:"endpoint"`
	AccessKey string `toml:"access_key" yaml:"access_key"`
	SecretKey string `toml:"secret_key" yaml:"secret_key"`
	Bucket    string `toml:"bucket" yaml:"bucket"`
	UseSSL    bool   `toml:"use_ssl" yaml:"use_ssl"`
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
}

// Default returns the configuration of a freshly initialised repository.
func Default() *Config {
	return &Config{
		Core: CoreConfig{
			MetadataDir: DefaultMetadataDir,
			Hash:        string(object.SHA1),
			Compression: string(object.Zlib),
			MaxDepth:    DefaultMaxDepth,
		},
		Storage: StorageConfig{Backend: BackendLoose},
		Log:     LogConfig{Level: "info", Format: "text"},
		Server:  ServerConfig{Addr: ":8080"},
	}
}

// Load reads path over the defaults. A missing file is not an error when
// optional is set; the defaults (plus environment) are returned.
func Load(path string, optional bool) (*Config, error) {
	return load(path, optional, true)
}

// ReadFile reads path over the defaults without environment overrides. Use
// it for configuration that will be written back to disk, so credentials
// taken from the environment never end up in a file.
func ReadFile(path string) (*Config, error) {
	return load(path, false, false)
}

func load(path string, optional, env bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, cfg); err != nil {
			return nil, err
		}
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if env {
		cfg.applyEnv()
	}
	cfg.fillDefaults()
	if err := cfg.WithEnv().Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadRepo loads the configuration of the repository at root, tolerating
// its absence. <root>/.git/config.toml is tried first; otherwise the first
// directory below root whose config.toml names that directory as
// core.metadata_dir is used.
func LoadRepo(root string) (*Config, error) {
	path := filepath.Join(root, DefaultMetadataDir, FileName)
	if _, err := os.Stat(path); err == nil {
		return Load(path, false)
	}

	dirs, err := os.ReadDir(root)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read root: %w", err)
	}
	for _, d := range dirs {
		if !d.IsDir() || d.Name() == DefaultMetadataDir {
			continue
		}
		candidate := filepath.Join(root, d.Name(), FileName)
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		cfg, err := Load(candidate, false)
		if err != nil {
			continue
		}
		if cfg.Core.MetadataDir == d.Name() {
			return cfg, nil
		}
	}
	return Load(path, true)
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("parse %s: unknown key %q", path, undecoded[0].String())
		}
	}
	return nil
}

// WithEnv returns a copy of c with environment overrides applied; c is not
// modified.
func (c *Config) WithEnv() *Config {
	out := *c
	out.applyEnv()
	return &out
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		c.Storage.Minio.Endpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		c.Storage.Minio.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		c.Storage.Minio.SecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		c.Storage.Minio.Bucket = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.Core.MetadataDir == "" {
		c.Core.MetadataDir = d.Core.MetadataDir
	}
	if c.Core.MaxDepth <= 0 {
		c.Core.MaxDepth = d.Core.MaxDepth
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Storage.Path == "" {
		switch c.Storage.Backend {
		case BackendSQLite:
			c.Storage.Path = "objects.db"
		case BackendBadger:
			c.Storage.Path = "badger"
		}
	}
}

func (c *Config) Validate() error {
	if _, err := c.Format(); err != nil {
		return err
	}
	if strings.ContainsAny(c.Core.MetadataDir, `/\`) || c.Core.MetadataDir == "." || c.Core.MetadataDir == ".." {
		return fmt.Errorf("core.metadata_dir %q must be a single path segment", c.Core.MetadataDir)
	}
	switch c.Storage.Backend {
	case BackendLoose, BackendSQLite, BackendBadger:
	case BackendMinio:
		if c.Storage.Minio.Endpoint == "" || c.Storage.Minio.Bucket == "" {
			return errors.New("storage.minio needs endpoint and bucket")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	return nil
}

// Format returns the object format selected by core.hash and
// core.compression.
func (c *Config) Format() (object.Format, error) {
	h, err := object.ParseHashAlgo(c.Core.Hash)
	if err != nil {
		return object.Format{}, fmt.Errorf("core.hash: %w", err)
	}
	codec, err := object.ParseCodec(c.Core.Compression)
	if err != nil {
		return object.Format{}, fmt.Errorf("core.compression: %w", err)
	}
	return object.Format{Hash: h, Codec: codec}, nil
}

// Identity renders the commit identity "Name <email>". Missing parts fall
// back to $USER and an empty address.
func (c *Config) Identity() string {
	name := c.User.Name
	if name == "" {
		name = os.Getenv("USER")
	}
	if name == "" {
		name = "unknown"
	}
	return fmt.Sprintf("%s <%s>", name, c.User.Email)
}

// Write stores c as TOML at path.
func (c *Config) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}
