package emu

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/kirsle/configdir"

	"sixtyfive/emu/log"
)

type Config struct {
	CPU     CPUConfig     `toml:"cpu"`
	Memory  MemoryConfig  `toml:"memory"`
	Images  []Image       `toml:"image"`
	Console ConsoleConfig `toml:"console"`
	Run     RunConfig     `toml:"run"`

	TraceOut io.WriteCloser `toml:"-"`
}

type CPUConfig struct {
	Decimal        bool    `toml:"decimal"`
	DecodeFallback bool    `toml:"decode_fallback"`
	PC             *uint16 `toml:"pc,omitempty"` // overrides the reset vector
}

type MemoryConfig struct {
	RAMSize int  `toml:"ram_size"` // mapped at $0000, power of 2
	Strict  bool `toml:"strict"`   // unmapped accesses and ROM writes are bus errors
}

// Image is a program image loaded at power up.
type Image struct {
	Path   string `toml:"path"`
	Addr   uint16 `toml:"addr"`
	ROM    bool   `toml:"rom"`    // map read-only, over RAM
	Format string `toml:"format"` // "bin", "ines" or empty to detect
}

// ConsoleConfig configures the memory-mapped character console.
type ConsoleConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    uint16 `toml:"addr"`
}

type RunConfig struct {
	Cycles     uint64 `toml:"cycles"` // 0 means no limit
	StopOnTrap bool   `toml:"stop_on_trap"`
}

// DefaultConfig returns the configuration of a 64KB RAM machine with no
// images.
func DefaultConfig() Config {
	return Config{
		CPU: CPUConfig{
			DecodeFallback: true,
		},
		Memory: MemoryConfig{
			RAMSize: 0x10000,
		},
		Console: ConsoleConfig{
			Addr: 0xF000,
		},
		Run: RunConfig{
			StopOnTrap: true,
		},
	}
}

// Check reports the first invalid setting.
func (cfg *Config) Check() error {
	sz := cfg.Memory.RAMSize
	if sz <= 0 || sz > 0x10000 || sz&(sz-1) != 0 {
		return fmt.Errorf("memory: ram_size must be a power of 2 up to 65536, got %d", sz)
	}
	for i, img := range cfg.Images {
		if img.Path == "" {
			return fmt.Errorf("image %d: missing path", i)
		}
		switch img.Format {
		case "", formatBin, formatINES:
		default:
			return fmt.Errorf("image %d: unknown format %q", i, img.Format)
		}
	}
	return nil
}

var ConfigDir = sync.OnceValue(func() string {
	dir := configdir.LocalConfig("sixtyfive")
	if err := configdir.MakePath(dir); err != nil {
		log.ModEmu.Fatalf("failed to create directory %s: %v", dir, err)
	}
	return dir
})

const cfgFilename = "config.toml"

// LoadConfig loads the configuration at path. Settings missing from the file
// keep their default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, err
	}
	for _, key := range md.Undecoded() {
		log.ModEmu.WarnZ("unknown configuration key").
			String("key", key.String()).
			String("path", path).
			End()
	}
	if err := cfg.Check(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ConfigPath returns the path of the configuration file in the sixtyfive
// config directory.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), cfgFilename)
}

// LoadConfigOrDefault loads the configuration from the sixtyfive config
// directory, or provide a default one.
func LoadConfigOrDefault() Config {
	cfg, err := LoadConfig(ConfigPath())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.ModEmu.WarnZ("failed to load config, using defaults").
				Error("err", err).
				End()
		}
		return DefaultConfig()
	}
	return cfg
}

// SaveConfig writes cfg to path, in the format read by LoadConfig.
func SaveConfig(path string, cfg Config) error {
	if err := cfg.Check(); err != nil {
		return err
	}
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}
