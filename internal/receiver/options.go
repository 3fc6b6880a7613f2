package receiver

import (
	"fmt"
	"strings"
	"time"
)

type PathMode string

const (
	// PathFixed writes every transfer to the same file, so each new
	// transfer overwrites the previous one.
	PathFixed PathMode = "fixed"
	// PathSession suffixes the file name with the session id.
	PathSession PathMode = "session"
	// PathTimestamp suffixes the file name with the completion time.
	PathTimestamp PathMode = "timestamp"
)

const (
	DefaultFileName       = "received_file"
	DefaultMaxBufferBytes = 64 << 20
)

type Options struct {
	FileName string
	PathMode PathMode
	// MaxBufferBytes bounds the base64 text held per session. Zero means
	// unbounded.
	MaxBufferBytes int64
}

func DefaultOptions() Options {
	return Options{
		FileName:       DefaultFileName,
		PathMode:       PathFixed,
		MaxBufferBytes: DefaultMaxBufferBytes,
	}
}

func (o Options) withDefaults() Options {
	if o.FileName == "" {
		o.FileName = DefaultFileName
	}
	if o.PathMode == "" {
		o.PathMode = PathFixed
	}
	return o
}

// OutputPath is the store path a completed transfer is written to.
func (o Options) OutputPath(sessionID string, at time.Time) string {
	o = o.withDefaults()

	switch o.PathMode {
	case PathSession:
		return fmt.Sprintf("%s-%s", o.FileName, sanitize(sessionID))
	case PathTimestamp:
		return fmt.Sprintf("%s-%d", o.FileName, at.UnixNano())
	default:
		return o.FileName
	}
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}
