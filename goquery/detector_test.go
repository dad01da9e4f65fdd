package goquery_test

import (
	"testing"

	"github.com/fwojciec/docmirror"
	"github.com/fwojciec/docmirror/goquery"
	"github.com/stretchr/testify/assert"
)

func TestDetector_Detect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want docmirror.Framework
	}{
		{
			name: "detects Docusaurus from skip link",
			html: `<html><body><a id="__docusaurus_skipToContent_fallback" href="#x">Skip</a></body></html>`,
			want: docmirror.FrameworkDocusaurus,
		},
		{
			name: "detects MkDocs from data-md-color-scheme attribute",
			html: `<html><body data-md-color-scheme="default"><nav class="md-nav"></nav></body></html>`,
			want: docmirror.FrameworkMkDocs,
		},
		{
			name: "detects Sphinx from generator meta tag",
			html: `<html><head><meta name="generator" content="Sphinx 7.2.6"></head><body></body></html>`,
			want: docmirror.FrameworkSphinx,
		},
		{
			name: "detects Sphinx from toctree wrapper",
			html: `<html><body><div class="toctree-wrapper compound"></div></body></html>`,
			want: docmirror.FrameworkSphinx,
		},
		{
			name: "detects VitePress before VuePress",
			html: `<html><body><div id="VPContent"><div class="theme-default-content"></div></div></body></html>`,
			want: docmirror.FrameworkVitePress,
		},
		{
			name: "detects VuePress from content class",
			html: `<html><body><div class="theme-default-content"></div></body></html>`,
			want: docmirror.FrameworkVuePress,
		},
		{
			name: "detects GitBook from test ids",
			html: `<html><body><aside data-testid="space.sidebar"></aside></body></html>`,
			want: docmirror.FrameworkGitBook,
		},
		{
			name: "detects GitBook from html classes",
			html: `<html class="circular-corners theme-clean"><body></body></html>`,
			want: docmirror.FrameworkGitBook,
		},
		{
			name: "detects Nextra from navbar",
			html: `<html><body><nav class="nextra-navbar"></nav></body></html>`,
			want: docmirror.FrameworkNextra,
		},
		{
			name: "generator meta tag takes precedence over markers",
			html: `<html><head><meta name="generator" content="Docusaurus v3.1.0"></head><body><div class="toctree-wrapper"></div></body></html>`,
			want: docmirror.FrameworkDocusaurus,
		},
		{
			name: "returns unknown for plain HTML",
			html: `<html><body><main><p>Hello</p></main></body></html>`,
			want: docmirror.FrameworkUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := goquery.NewDetector()

			assert.Equal(t, tt.want, d.Detect(tt.html))
		})
	}
}
