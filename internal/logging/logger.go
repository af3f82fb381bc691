// Package logging is the compiler's leveled, structured logger. Entries
// carry the logger name and persistent fields and are written as
// human-readable text (levels styled with lipgloss) or as JSON lines.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Level represents log severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ShortString returns the three-letter tag used in text output.
func (l Level) ShortString() string {
	switch l {
	case LevelDebug:
		return "DBG"
	case LevelInfo:
		return "INF"
	case LevelWarn:
		return "WRN"
	case LevelError:
		return "ERR"
	default:
		return "???"
	}
}

func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Format selects how entries are written.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format %q", s)
	}
}

// Fields are key/value pairs attached to entries.
type Fields map[string]any

// Logger is safe for concurrent use. The With* methods return copies and
// leave the receiver unchanged.
type Logger struct {
	name   string
	level  Level
	format Format
	output io.Writer
	fields Fields
	styles levelStyles
	now    func() time.Time

	mu *sync.Mutex
}

// New creates a text logger at info level writing to stderr.
func New(name string) *Logger {
	l := &Logger{
		name:   name,
		level:  LevelInfo,
		format: FormatText,
		output: os.Stderr,
		fields: make(Fields),
		now:    time.Now,
		mu:     &sync.Mutex{},
	}
	l.styles = newLevelStyles(l.output)
	return l
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	return New("").WithOutput(io.Discard).WithLevel(LevelError + 1)
}

func (l *Logger) clone() *Logger {
	c := *l
	c.fields = make(Fields, len(l.fields))
	for k, v := range l.fields {
		c.fields[k] = v
	}
	return &c
}

func (l *Logger) WithLevel(level Level) *Logger {
	c := l.clone()
	c.level = level
	return c
}

func (l *Logger) WithFormat(format Format) *Logger {
	c := l.clone()
	c.format = format
	return c
}

// WithOutput redirects output. Each output gets its own mutex and
// color detection.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	c := l.clone()
	c.output = w
	c.mu = &sync.Mutex{}
	c.styles = newLevelStyles(w)
	return c
}

func (l *Logger) WithName(name string) *Logger {
	c := l.clone()
	c.name = name
	return c
}

func (l *Logger) WithField(key string, value any) *Logger {
	c := l.clone()
	c.fields[key] = value
	return c
}

func (l *Logger) WithFields(fields Fields) *Logger {
	c := l.clone()
	for k, v := range fields {
		c.fields[k] = v
	}
	return c
}

func (l *Logger) Level() Level { return l.level }

func (l *Logger) Enabled(level Level) bool {
	return level >= l.level
}

func (l *Logger) Debug(msg string, keyvals ...any) { l.log(LevelDebug, msg, keyvals) }
func (l *Logger) Info(msg string, keyvals ...any)  { l.log(LevelInfo, msg, keyvals) }
func (l *Logger) Warn(msg string, keyvals ...any)  { l.log(LevelWarn, msg, keyvals) }
func (l *Logger) Error(msg string, keyvals ...any) { l.log(LevelError, msg, keyvals) }

func (l *Logger) log(level Level, msg string, keyvals []any) {
	if !l.Enabled(level) {
		return
	}
	fields := make(Fields, len(l.fields)+len(keyvals)/2)
	for k, v := range l.fields {
		fields[k] = v
	}
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if i+1 < len(keyvals) {
			fields[key] = keyvals[i+1]
		} else {
			fields[key] = "(missing)"
		}
	}

	var line []byte
	if l.format == FormatJSON {
		line = l.formatJSON(level, msg, fields)
	} else {
		line = l.formatText(level, msg, fields)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.output.Write(line)
}

func sortedKeys(fields Fields) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (l *Logger) formatText(level Level, msg string, fields Fields) []byte {
	var sb strings.Builder
	sb.WriteString(l.styles.timestamp.Render(l.now().Format("15:04:05")))
	sb.WriteString(" ")
	sb.WriteString(l.styles.forLevel(level).Render(level.ShortString()))
	if l.name != "" {
		sb.WriteString(" ")
		sb.WriteString(l.styles.name.Render("[" + l.name + "]"))
	}
	sb.WriteString(" ")
	sb.WriteString(msg)
	for _, k := range sortedKeys(fields) {
		v := fmt.Sprint(fields[k])
		if strings.ContainsAny(v, " \t\"=") {
			v = fmt.Sprintf("%q", v)
		}
		sb.WriteString(" ")
		sb.WriteString(l.styles.key.Render(k + "="))
		sb.WriteString(v)
	}
	sb.WriteString("\n")
	return []byte(sb.String())
}

func (l *Logger) formatJSON(level Level, msg string, fields Fields) []byte {
	data := make(map[string]any, len(fields)+4)
	for k, v := range fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		data[k] = v
	}
	data["time"] = l.now().Format(time.RFC3339)
	data["level"] = level.String()
	data["msg"] = msg
	if l.name != "" {
		data["logger"] = l.name
	}
	out, err := json.Marshal(data)
	if err != nil {
		out = []byte(fmt.Sprintf(`{"level":"error","msg":"unencodable log entry: %s"}`, err))
	}
	return append(out, '\n')
}

// --- Styles ---

var (
	ColorDebug = lipgloss.Color("#94A3B8") // Gray
	ColorInfo  = lipgloss.Color("#06B6D4") // Cyan
	ColorWarn  = lipgloss.Color("#F59E0B") // Amber
	ColorError = lipgloss.Color("#EF4444") // Red
	ColorMuted = lipgloss.Color("#6B7280")
)

type levelStyles struct {
	debug, info, warn, error lipgloss.Style
	timestamp, name, key     lipgloss.Style
}

// newLevelStyles binds styles to a renderer for w, so color is only
// emitted when w is a terminal.
func newLevelStyles(w io.Writer) levelStyles {
	r := lipgloss.NewRenderer(w)
	return levelStyles{
		debug:     r.NewStyle().Foreground(ColorDebug),
		info:      r.NewStyle().Foreground(ColorInfo).Bold(true),
		warn:      r.NewStyle().Foreground(ColorWarn).Bold(true),
		error:     r.NewStyle().Foreground(ColorError).Bold(true),
		timestamp: r.NewStyle().Foreground(ColorMuted),
		name:      r.NewStyle().Foreground(ColorMuted),
		key:       r.NewStyle().Foreground(ColorMuted),
	}
}

func (s levelStyles) forLevel(level Level) lipgloss.Style {
	switch level {
	case LevelDebug:
		return s.debug
	case LevelWarn:
		return s.warn
	case LevelError:
		return s.error
	default:
		return s.info
	}
}
