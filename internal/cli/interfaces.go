package cli

import (
	"github.com/shadowlend/shadowlend/internal/cluster"
	"github.com/shadowlend/shadowlend/internal/config"
	"github.com/shadowlend/shadowlend/internal/metrics"
	"github.com/shadowlend/shadowlend/internal/output"
	"github.com/shadowlend/shadowlend/internal/session"
)

// Compile-time interface checks.
var (
	_ LogWriter        = (*config.Logger)(nil)
	_ FormatProvider   = (*output.Formatter)(nil)
	_ session.Logger   = (*config.Logger)(nil)
	_ cluster.Logger   = (*config.Logger)(nil)
	_ session.Recorder = (*metrics.Collector)(nil)
	_ cluster.Observer = (*metrics.Collector)(nil)
)

// LogWriter provides logging capabilities.
// This interface enables mocking logging in tests.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
	Close() error
}

// FormatProvider provides output format information.
type FormatProvider interface {
	Format() output.Format
}
