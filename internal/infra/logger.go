// README: Structured logger construction.
package infra

import "go.uber.org/zap"

// NewLogger builds the process-wide zap logger. Development mode uses the
// console encoder.
func NewLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
