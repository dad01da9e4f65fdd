// Package docmirror keeps local, searchable mirrors of documentation sites.
// It discovers configured documentation origins, crawls them, normalizes
// pages into structured text, embeds that text into a vector index, and
// answers semantic search queries with source attribution.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, qdrant/, goldmark/).
package docmirror
