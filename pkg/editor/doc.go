// Package editor drives a form-builder session: edits go through a draft
// engine, and Save and Publish validate the structure before anything is
// persisted. Outcomes come back as Notice values for the caller to display.
package editor
