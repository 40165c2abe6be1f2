package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/edubot/internal/logging"
	"github.com/abhisek/edubot/internal/store"
)

// LoggingProvider records every call as an "llm" request event so that
// `edubot events` can show prompts, replies, latency and token usage.
type LoggingProvider struct {
	inner  Provider
	name   string
	events store.EventRepo
	log    *logging.Logger
}

// WithLogging wraps p. name identifies the provider (e.g. "gemini") in
// the recorded events.
func WithLogging(p Provider, name string, events store.EventRepo, log *logging.Logger) Provider {
	if log == nil {
		log = logging.Nop()
	}
	return &LoggingProvider{inner: p, name: name, events: events, log: log}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	ev := store.RequestEventData{
		Kind:        store.KindLLM,
		Target:      l.name,
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: renderRequest(req),
	}
	if resp != nil {
		ev.Model = resp.Model
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		ev.ResponseBody = string(resp.Content)
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
		l.log.Warn("llm request failed", "provider", l.name, "purpose", ev.Purpose, "error", err)
	} else {
		l.log.Debug("llm request", "provider", l.name, "purpose", ev.Purpose,
			"latency_ms", ev.LatencyMs, "input_tokens", ev.InputTokens, "output_tokens", ev.OutputTokens)
	}

	if l.events != nil {
		if rerr := l.events.AppendRequest(ctx, ev); rerr != nil {
			l.log.Warn("record llm event", "error", rerr)
		}
	}
	return resp, err
}

func (l *LoggingProvider) ModelID() string { return l.inner.ModelID() }

func renderRequest(req Request) string {
	var b strings.Builder
	if req.System != "" {
		fmt.Fprintf(&b, "[system]\n%s\n\n", req.System)
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}
