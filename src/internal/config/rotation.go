package config

import "fmt"

// FileSinkOptions configures the rotating file sink. Rotation
// semantics (when/interval/at_time combinations) are validated by the
// rotation policy itself at sink construction.
type FileSinkOptions struct {
	// Full path of the live log file
	Path string `toml:"path"`

	// Open mode: "append" (default), "truncate", "exclusive",
	// "read-write", "read-write-truncate"
	Mode string `toml:"mode"`

	// Size threshold in bytes (0 = size-based rotation disabled)
	MaxBytes int64 `toml:"max_bytes"`

	// Number of rotated backups to retain
	BackupCount int `toml:"backup_count"`

	// Time unit: "S", "M", "H", "D", "MIDNIGHT" or "W0".."W6"
	When string `toml:"when"`

	// Multiplier for fixed units (ignored for MIDNIGHT/weekly)
	Interval int `toml:"interval"`

	// Optional "HH:MM:SS" anchor for MIDNIGHT/weekly rotation
	AtTime string `toml:"at_time"`

	// Backup naming: "count" (file.1, file.2, ...) or
	// "time" (file.2025-01-24_17-03-32-4642)
	BackupNaming string `toml:"backup_naming"`

	BufferSize int64 `toml:"buffer_size"`
}

func (o *FileSinkOptions) validate() error {
	if o.Path == "" {
		return fmt.Errorf("file sink requires 'path'")
	}
	switch o.Mode {
	case "", "append", "truncate", "exclusive", "read-write", "read-write-truncate":
	default:
		return fmt.Errorf("invalid file mode '%s'", o.Mode)
	}
	return nil
}
