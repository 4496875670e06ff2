// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"

	"render/internal/log"
)

var logger = log.For("transport")

// LoggingTransport implements the Transport interface by logging data at
// info level.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	logger.Debugf("using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data as JSON, or with %+v if it cannot be marshaled.
func (lt *LoggingTransport) Send(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		logger.Infof("%T: %+v", data, data)
		return nil
	}
	logger.Infof("%T: %s", data, raw)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error { return nil }

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
