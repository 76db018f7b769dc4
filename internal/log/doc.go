// Package log contains the Logger used by the entire application. The Logger is a wrapper around zap.SugaredLogger.
// There should be a single instance of the Logger in the application, and it should be injected into any structs that need to log.
// Components name their child loggers (logger.Named("users")) so entries can be traced back to the layer that wrote them.
package log
