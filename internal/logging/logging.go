// Package logging builds the zap logger used across the gateway.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures the rotating log file.
type FileOptions struct {
	// Filename is the path of the active log file.
	Filename string
	// MaxSize in megabytes before rotation.
	MaxSize int
	// MaxBackups is the number of rotated files kept.
	MaxBackups int
	// Compress gzips rotated files.
	Compress bool
}

// Options selects level, encoding and destination.
type Options struct {
	Level       string
	File        FileOptions
	Development bool
}

// New creates a logger. Development loggers use the console encoder, the
// others JSON. When File.Filename is set, output goes to a rotating file
// instead of stderr.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		l, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = l
	}

	var encoder zapcore.Encoder
	if opts.Development {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	} else {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	}

	sink := zapcore.Lock(os.Stderr)
	if opts.File.Filename != "" {
		sink = SyncerWithRotation(opts.File)
	}

	core := zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddCaller()), nil
}

// SyncerWithRotation returns a write syncer backed by lumberjack rotation.
func SyncerWithRotation(opts FileOptions) zapcore.WriteSyncer {
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = 100
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   opts.Filename,
		MaxSize:    maxSize,
		MaxBackups: opts.MaxBackups,
		Compress:   opts.Compress,
	})
}
