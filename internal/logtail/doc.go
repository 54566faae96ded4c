// Package logtail reads the tail of roost's own log file for the panel's log
// view. Lines written by the file logger are JSON objects with ts, level,
// logger and msg keys; Parse decodes them and keeps any other keys as fields.
package logtail
