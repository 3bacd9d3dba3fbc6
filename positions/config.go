package positions

import (
	"github.com/forgequant/emulator/config/encoding"
	"github.com/forgequant/emulator/logging"
)

// namedLogger is the identifier for package and should ideally match the package name
// this is simply emitted as a hierarchical label e.g. 'positions'.
const namedLogger = "positions"

// Config represent the configuration of the position controllers
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	// CheckMoney rejects registrations that would block more money than the
	// portfolio holds.
	CheckMoney bool

	// CheckShortable rejects sells that would push a non-shortable security
	// below flat.
	CheckShortable bool
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level: encoding.LogLevel{Level: logging.InfoLevel},
	}
}
