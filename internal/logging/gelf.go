package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Graylog2/go-gelf/gelf"
)

// GelfWriter is the part of *gelf.Writer the handler needs.
type GelfWriter interface {
	WriteMessage(m *gelf.Message) error
}

// DialGelf opens a UDP GELF writer to a Graylog input.
func DialGelf(address string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("connecting to graylog at %s: %w", address, err)
	}
	return w, nil
}

// GelfHandler is a slog.Handler that ships records to Graylog.
// Attributes become GELF additional fields.
type GelfHandler struct {
	w        GelfWriter
	host     string
	facility string
	level    slog.Leveler
	attrs    []slog.Attr
	prefix   string
}

// NewGelfHandler creates a handler writing to w for records at or above level.
func NewGelfHandler(w GelfWriter, facility string, level slog.Leveler) *GelfHandler {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &GelfHandler{w: w, host: host, facility: facility, level: level}
}

func (h *GelfHandler) Enabled(_ context.Context, level slog.Level) bool {
	threshold := slog.LevelInfo
	if h.level != nil {
		threshold = h.level.Level()
	}
	return level >= threshold
}

func (h *GelfHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		addGelfField(extra, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addGelfField(extra, h.prefix, a)
		return true
	})

	return h.w.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(r.Time.UnixNano()) / 1e9,
		Level:    syslogLevel(r.Level),
		Facility: h.facility,
		Extra:    extra,
	})
}

func (h *GelfHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *GelfHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func addGelfField(extra map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, ga := range v.Group() {
			addGelfField(extra, prefix+a.Key+".", ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	switch v.Kind() {
	case slog.KindString:
		extra["_"+prefix+a.Key] = v.String()
	case slog.KindInt64:
		extra["_"+prefix+a.Key] = v.Int64()
	case slog.KindUint64:
		extra["_"+prefix+a.Key] = v.Uint64()
	case slog.KindFloat64:
		extra["_"+prefix+a.Key] = v.Float64()
	case slog.KindBool:
		extra["_"+prefix+a.Key] = v.Bool()
	default:
		extra["_"+prefix+a.Key] = v.String()
	}
}

// syslogLevel maps slog levels onto the syslog severities GELF uses.
func syslogLevel(l slog.Level) int32 {
	switch {
	case l >= slog.LevelError:
		return 3
	case l >= slog.LevelWarn:
		return 4
	case l >= slog.LevelInfo:
		return 6
	default:
		return 7
	}
}
