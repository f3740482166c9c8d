/*
Package log wraps zerolog with a global logger and field helpers.

Init configures the global once at startup; components take child
loggers via WithComponent and friends so every line carries its origin.
The zero-value logger is safe before Init, which keeps package
constructors usable in tests without logging setup.
*/
package log
