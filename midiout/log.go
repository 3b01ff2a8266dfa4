package midiout

import "go.uber.org/zap"

// LogSink logs note events instead of sending them.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink returns a dry-run sink writing to l.
func NewLogSink(l *zap.Logger) *LogSink {
	if l == nil {
		l = zap.NewNop()
	}
	return &LogSink{log: l.Named("midi")}
}

func (s *LogSink) NoteOn(channel, key, velocity uint8) error {
	s.log.Info("note on",
		zap.Uint8("channel", channel),
		zap.Uint8("key", key),
		zap.Uint8("velocity", velocity),
	)
	return nil
}

func (s *LogSink) NoteOff(channel, key, velocity uint8) error {
	s.log.Info("note off",
		zap.Uint8("channel", channel),
		zap.Uint8("key", key),
		zap.Uint8("velocity", velocity),
	)
	return nil
}
