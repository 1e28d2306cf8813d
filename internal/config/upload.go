package config

type Upload struct {
	MaxFileSize  int64    `env:"UPLOAD_MAX_FILE_SIZE" envDefault:"5242880" validate:"gt=0"`
	AllowedTypes []string `env:"UPLOAD_ALLOWED_TYPES" envSeparator:"," envDefault:"image/jpeg,image/png,image/gif"`
	// MaxMemory is the multipart parser's in-memory budget; the rest spills to disk.
	MaxMemory int64 `env:"UPLOAD_MAX_MEMORY" envDefault:"33554432"`
}
