// Package logger provides audit logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogBacktestCreated logs a new backtest record.
func (al *AuditLogger) LogBacktestCreated(id int64, symbol, strategyName, remoteAddr string) {
	al.WithFields(logrus.Fields{
		"entity":        "backtest",
		"id":            id,
		"symbol":        symbol,
		"strategy_name": strategyName,
		"remote_addr":   remoteAddr,
	}).Info("Backtest created")
}

// LogBacktestUpdated logs a full replace of a backtest record.
func (al *AuditLogger) LogBacktestUpdated(id int64, remoteAddr string) {
	al.WithFields(logrus.Fields{
		"entity":      "backtest",
		"id":          id,
		"remote_addr": remoteAddr,
	}).Info("Backtest updated")
}

// LogBacktestDeleted logs a backtest deletion.
func (al *AuditLogger) LogBacktestDeleted(id int64, remoteAddr string) {
	al.WithFields(logrus.Fields{
		"entity":      "backtest",
		"id":          id,
		"remote_addr": remoteAddr,
	}).Info("Backtest deleted")
}

// LogBundleUploaded logs a strategy file upload.
func (al *AuditLogger) LogBundleUploaded(id int64, strategyName string, exBytes, mqBytes int, remoteAddr string) {
	al.WithFields(logrus.Fields{
		"entity":        "strategy_bundle",
		"id":            id,
		"strategy_name": strategyName,
		"ex_bytes":      exBytes,
		"mq_bytes":      mqBytes,
		"remote_addr":   remoteAddr,
	}).Info("Strategy files uploaded")
}

// LogBundleDeleted logs a strategy bundle deletion.
func (al *AuditLogger) LogBundleDeleted(id int64, remoteAddr string) {
	al.WithFields(logrus.Fields{
		"entity":      "strategy_bundle",
		"id":          id,
		"remote_addr": remoteAddr,
	}).Info("Strategy files deleted")
}
