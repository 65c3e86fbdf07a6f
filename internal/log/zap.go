package log

import "go.uber.org/zap"

// ZapLogger keeps events in memory and mirrors each one to a structured logger.
type ZapLogger struct {
	MemoryLogger
	z *zap.Logger
}

func NewZapLogger(z *zap.Logger) *ZapLogger {
	if z == nil {
		z = zap.NewNop()
	}
	return &ZapLogger{z: z}
}

func (l *ZapLogger) Log(event GameEvent) {
	l.MemoryLogger.Log(event)
	l.z.Debug(event.Details,
		zap.Int("seq", l.seq),
		zap.String("event", event.Type.String()),
		zap.Int("turn", event.Turn),
		zap.String("phase", event.Phase),
		zap.Int("player", event.Player),
		zap.String("card", event.Card),
	)
}
