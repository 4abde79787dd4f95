package middleware

import (
	"context"

	"github.com/nodecanvas/go-dataflow/internal/domain"
	"github.com/nodecanvas/go-dataflow/internal/ports"
)

var _ ports.ExecutionObserver = (*LoggingObserver)(nil)

// LoggingObserver writes pass lifecycle events through a Logger: passes
// at info level, individual nodes at debug, node failures at warn. It is
// the lightest way to see what the engine is doing without wiring
// metrics or tracing.
type LoggingObserver struct {
	logger ports.Logger
}

// NewLoggingObserver creates an observer writing through the given
// logger.
func NewLoggingObserver(logger ports.Logger) *LoggingObserver {
	return &LoggingObserver{logger: logger}
}

// ExecutionStarted logs the pass header.
func (o *LoggingObserver) ExecutionStarted(ctx context.Context, info domain.PassInfo) {
	o.logger.Info("execution pass started",
		"pass", info.ID,
		"trigger", string(info.Trigger),
		"nodes", info.Nodes,
	)
}

// NodeProcessed logs one node invocation; failures are warnings.
func (o *LoggingObserver) NodeProcessed(ctx context.Context, result domain.NodeResult) {
	if result.Err != nil {
		o.logger.Warn("node failed",
			"node", result.NodeID,
			"rank", result.Rank,
			"duration", result.Duration.String(),
			"error", result.Err.Error(),
		)
		return
	}
	o.logger.Debug("node processed",
		"node", result.NodeID,
		"rank", result.Rank,
		"duration", result.Duration.String(),
	)
}

// ExecutionCompleted logs the pass outcome.
func (o *LoggingObserver) ExecutionCompleted(ctx context.Context, result domain.PassResult) {
	o.logger.Info("execution pass completed",
		"pass", result.ID,
		"trigger", string(result.Trigger),
		"processed", result.Processed,
		"failed", result.Failed,
		"duration", result.Duration.String(),
	)
}
