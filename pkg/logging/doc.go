// Package logging provides a small structured-logging facade used across the
// gateway. It wraps log/slog behind subsystem-tagged helpers so call sites
// read as "logging.Info(subsystem, format, args...)" instead of threading a
// *slog.Logger through every constructor.
package logging
