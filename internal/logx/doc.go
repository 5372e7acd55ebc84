// Package logx is a small leveled logger with per-component prefixes,
// optional color, " | "-separated level, component and message fields, and
// one package-wide level that every component logger uses (there is no
// per-logger level).
package logx
