// Package logging provides structured logging for the Broadlink client.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the module. It provides both general logging
// functions and specialized functions for protocol-specific logging needs.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (hex dumps, packet parsing, retries)
//   - Info: Normal operations (discovery, authentication, state changes)
//   - Warn: Non-fatal issues (dropped replies, retries)
//   - Error: Fatal issues (socket failures, critical errors)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Device authenticated",
//	    zap.String("remote_addr", "192.168.1.100"),
//	    zap.String("mac", "34:ea:34:01:02:03"),
//	    zap.String("model", "RM4 pro"),
//	)
//
// # Specialized Logging
//
// The package provides domain-specific logging functions:
//
// Datagram Logging:
//
//	logging.LogDatagram(remoteAddr, "sent", packet)
//	logging.LogDatagram(remoteAddr, "received", packet)
//
// Raw Byte Logging:
//
//	logging.LogRawBytes("decrypted payload", payload)
//
// # Configuration
//
// Logging is silent by default so library output never pollutes CLI commands.
// Set BROADLINK_LOG_LEVEL (or call Initialize with an explicit level) to
// enable it:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
