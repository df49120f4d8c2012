// Package logx configures pushrelay's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - JSON output structured (stdout in json mode, and the optional log file)
package logx
