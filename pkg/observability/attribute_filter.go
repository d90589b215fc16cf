package observability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// attrVerdict is the outcome of classifying one attribute key.
type attrVerdict int

const (
	verdictDrop attrVerdict = iota
	verdictKeep
)

// attrPolicy decides which span attribute keys survive export. Deny rules
// are checked before keep rules, so a denied key stays denied even when it
// also matches a keep prefix.
type attrPolicy struct {
	denyKeys     map[string]bool
	denyPrefixes []string
	keepKeys     map[string]bool
	keepPrefixes []string
}

func (p attrPolicy) classify(key string) attrVerdict {
	if p.denyKeys[key] {
		return verdictDrop
	}

	for _, prefix := range p.denyPrefixes {
		if strings.HasPrefix(key, prefix) {
			return verdictDrop
		}
	}

	if p.keepKeys[key] {
		return verdictKeep
	}

	for _, prefix := range p.keepPrefixes {
		if strings.HasPrefix(key, prefix) {
			return verdictKeep
		}
	}

	return verdictDrop
}

// exportAttrPolicy is the policy applied to every exported span. Benchmarks
// often run in CI where the process environment carries secrets, so the
// policy is keep-listed: unknown keys are dropped.
var exportAttrPolicy = attrPolicy{
	denyKeys: map[string]bool{
		"email":                true,
		"process.command_args": true,
		"process.command_line": true,
	},
	denyPrefixes: []string{
		"user.",
		"process.env",
	},
	keepKeys: map[string]bool{
		"error":     true,
		"benchmark": true,
		"samples":   true,
		"resamples": true,
		"outliers":  true,
		"bins":      true,
		"seed":      true,
		"format":    true,
	},
	keepPrefixes: []string{
		"benchfang.",
		"error.",
		"bench.",
		"suite.",
		"run.",
		"dataset.",
		"filter.",
		"report.",
		"plot.",
	},
}

// attributeFilter is a SpanProcessor that strips denied and unknown
// attributes before forwarding spans to a delegate processor.
type attributeFilter struct {
	delegate sdktrace.SpanProcessor
	policy   attrPolicy
	logger   *slog.Logger
}

// NewAttributeFilter returns a SpanProcessor that scrubs span attributes
// against the export policy. Keys matching benchfang namespaces pass
// through; user identity and process state are dropped. When logger is
// non-nil every dropped key is logged as a warning (intended for debug
// tracing).
func NewAttributeFilter(delegate sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	return &attributeFilter{delegate: delegate, policy: exportAttrPolicy, logger: logger}
}

// OnStart delegates to the wrapped processor.
func (f *attributeFilter) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	f.delegate.OnStart(parent, s)
}

// OnEnd hands the delegate a scrubbed view of the span. ReadOnlySpan
// attributes cannot be mutated in place.
func (f *attributeFilter) OnEnd(s sdktrace.ReadOnlySpan) {
	f.delegate.OnEnd(&scrubbedSpan{ReadOnlySpan: s, owner: f})
}

// Shutdown delegates to the wrapped processor.
func (f *attributeFilter) Shutdown(ctx context.Context) error {
	err := f.delegate.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("attribute filter shutdown: %w", err)
	}

	return nil
}

// ForceFlush delegates to the wrapped processor.
func (f *attributeFilter) ForceFlush(ctx context.Context) error {
	err := f.delegate.ForceFlush(ctx)
	if err != nil {
		return fmt.Errorf("attribute filter flush: %w", err)
	}

	return nil
}

func (f *attributeFilter) keep(key string) bool {
	if f.policy.classify(key) == verdictKeep {
		return true
	}

	if f.logger != nil {
		f.logger.Warn("attribute blocked by filter", "key", key)
	}

	return false
}

// scrubbedSpan wraps a ReadOnlySpan and exposes only attributes the owning
// filter keeps.
type scrubbedSpan struct {
	sdktrace.ReadOnlySpan

	owner *attributeFilter
}

// Attributes returns the surviving attributes.
func (s *scrubbedSpan) Attributes() []attribute.KeyValue {
	orig := s.ReadOnlySpan.Attributes()
	kept := make([]attribute.KeyValue, 0, len(orig))

	for _, kv := range orig {
		if s.owner.keep(string(kv.Key)) {
			kept = append(kept, kv)
		}
	}

	return kept
}
