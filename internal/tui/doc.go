// Package tui provides the interactive device picker.
//
// The picker is a single full-screen Bubble Tea model: it broadcasts a
// discovery scan on startup, shows a spinner while the collection
// window is open, then lists the responding devices for selection.
// Filtering, rescanning, and keyboard navigation come from the bubbles
// list component.
//
// Commands that accept a device address flag use it directly; without
// one they fall back to this picker, so the terminal must be a TTY in
// that case.
package tui
