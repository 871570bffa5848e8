// Package docdex indexes web documentation sites for later semantic and
// full-text retrieval. It manages one cancellable, resumable operation per
// target site, drives a domain- and path-restricted crawl, reconciles
// authenticated browsing sessions, and streams discovered pages to
// downstream processing under backpressure.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, rod/, goquery/).
package docdex
