package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/docmirror"
)

var _ docmirror.LinkSelectorRegistry = (*LoggingRegistry)(nil)

// LoggingRegistry logs which framework a page was detected as before
// choosing its link selector.
type LoggingRegistry struct {
	next     docmirror.LinkSelectorRegistry
	detector docmirror.FrameworkDetector
	logger   *slog.Logger
}

// NewLoggingRegistry wraps next. detector should be the one next uses.
func NewLoggingRegistry(next docmirror.LinkSelectorRegistry, detector docmirror.FrameworkDetector, logger *slog.Logger) *LoggingRegistry {
	return &LoggingRegistry{next: next, detector: detector, logger: logger}
}

// Get implements docmirror.LinkSelectorRegistry.
func (r *LoggingRegistry) Get(framework docmirror.Framework) docmirror.LinkSelector {
	return r.next.Get(framework)
}

// GetForHTML implements docmirror.LinkSelectorRegistry.
func (r *LoggingRegistry) GetForHTML(html string) docmirror.LinkSelector {
	begin := time.Now()
	name := "(unknown)"
	if fw := r.detector.Detect(html); fw != docmirror.FrameworkUnknown {
		name = string(fw)
	}
	selector := r.next.GetForHTML(html)

	attrs := []any{"framework", name, "duration", time.Since(begin)}
	if selector != nil {
		attrs = append(attrs, "selector", selector.Name())
	}
	r.logger.Info("framework detection", attrs...)
	return selector
}

// Register implements docmirror.LinkSelectorRegistry.
func (r *LoggingRegistry) Register(framework docmirror.Framework, selector docmirror.LinkSelector) {
	r.next.Register(framework, selector)
}

// List implements docmirror.LinkSelectorRegistry.
func (r *LoggingRegistry) List() []docmirror.Framework {
	return r.next.List()
}
