// Package build provides the build execution pipeline for KatSite.
//
// Service.Run is the single entry point used by the CLI and by tests. A run
// starts the init hook in the background, discovers the input files, builds
// them on a bounded worker pool, runs the postinit hook once every file has
// been written and finally joins the init hook.
//
// Each file goes through a Pipeline: read, markdown hook chain, UTF-8 decode,
// goldmark render, doctype/viewport prelude, html hook chain, write.
package build
