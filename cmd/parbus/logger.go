package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/moffa90/go-parbus/memory"
)

// logrusLogger adapts logrus to memory.Logger.
type logrusLogger struct {
	entry *log.Entry
}

func newLogger(component string) memory.Logger {
	return &logrusLogger{entry: log.WithField("component", component)}
}

func (l *logrusLogger) Debug(msg string, kv ...interface{}) {
	l.entry.WithFields(fields(kv)).Debug(msg)
}

func (l *logrusLogger) Info(msg string, kv ...interface{}) {
	l.entry.WithFields(fields(kv)).Info(msg)
}

func (l *logrusLogger) Error(msg string, kv ...interface{}) {
	l.entry.WithFields(fields(kv)).Error(msg)
}

// fields converts alternating key-value pairs. A trailing key without a
// value is kept with a nil value.
func fields(kv []interface{}) log.Fields {
	f := make(log.Fields, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 < len(kv) {
			f[key] = kv[i+1]
		} else {
			f[key] = nil
		}
	}
	return f
}
