package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// DefaultFilePath is used when file logging is enabled without a path.
const DefaultFilePath = "./gotify2telegram.log"

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

type Config struct {
	Level   string
	Console bool
	File    FileConfig
}

type FileConfig struct {
	Enabled bool
	Path    string
}

// Service owns the sinks. Apply may be called concurrently with logging.
type Service struct {
	console io.Writer

	mu       sync.Mutex
	file     *os.File
	filePath string

	root atomic.Pointer[zerolog.Logger]
}

// New applies cfg and returns the service with a root logger. A file sink
// that cannot be opened is reported on the console and skipped.
func New(cfg Config) (*Service, Logger) {
	return newService(os.Stdout, cfg)
}

func newService(console io.Writer, cfg Config) (*Service, Logger) {
	zerolog.ErrorFieldName = "err"
	zerolog.TimeFieldFormat = timeFormat

	s := &Service{console: newConsoleWriter(console)}
	if err := s.Apply(cfg); err != nil {
		s.Logger().Error("log file unavailable", Err(err))
	}
	return s, s.Logger()
}

func (s *Service) Logger() Logger { return Logger{svc: s} }

// Apply swaps level and sinks. An unchanged file path keeps the open file.
// With no sink configured the console is used.
func (s *Service) Apply(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		writers []io.Writer
		fileErr error
	)
	if cfg.Console {
		writers = append(writers, s.console)
	}

	want := ""
	if cfg.File.Enabled {
		want = strings.TrimSpace(cfg.File.Path)
		if want == "" {
			want = DefaultFilePath
		}
	}
	if want != s.filePath {
		s.closeFileLocked()
		if want != "" {
			f, err := os.OpenFile(want, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				fileErr = fmt.Errorf("logx: open %q: %w", want, err)
			} else {
				s.file, s.filePath = f, want
			}
		}
	}
	if s.file != nil {
		writers = append(writers, zerolog.SyncWriter(s.file))
	}
	if len(writers) == 0 {
		writers = append(writers, s.console)
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(parseLevel(cfg.Level)).With().Timestamp().Logger()
	s.root.Store(&zl)
	return fileErr
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeFileLocked()
}

func (s *Service) closeFileLocked() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file, s.filePath = nil, ""
	return err
}

func newConsoleWriter(w io.Writer) io.Writer {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}
	cw.FormatCaller = func(i any) string {
		s, _ := i.(string)
		return s
	}
	return cw
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
