//
// Tencent is pleased to support the open source community by making trpc-workflow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-workflow-go is licensed under the Apache License Version 2.0.
//
//

package log

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) log(level, msg string) {
	r.lines = append(r.lines, level+": "+msg)
}

func (r *recordingLogger) Debug(args ...any) { r.log("debug", fmt.Sprint(args...)) }
func (r *recordingLogger) Debugf(format string, args ...any) {
	r.log("debug", fmt.Sprintf(format, args...))
}
func (r *recordingLogger) Info(args ...any) { r.log("info", fmt.Sprint(args...)) }
func (r *recordingLogger) Infof(format string, args ...any) {
	r.log("info", fmt.Sprintf(format, args...))
}
func (r *recordingLogger) Warn(args ...any) { r.log("warn", fmt.Sprint(args...)) }
func (r *recordingLogger) Warnf(format string, args ...any) {
	r.log("warn", fmt.Sprintf(format, args...))
}
func (r *recordingLogger) Error(args ...any) { r.log("error", fmt.Sprint(args...)) }
func (r *recordingLogger) Errorf(format string, args ...any) {
	r.log("error", fmt.Sprintf(format, args...))
}
func (r *recordingLogger) Fatal(args ...any) { r.log("fatal", fmt.Sprint(args...)) }
func (r *recordingLogger) Fatalf(format string, args ...any) {
	r.log("fatal", fmt.Sprintf(format, args...))
}

func TestPackageHelpersUseDefault(t *testing.T) {
	orig := Default
	defer func() { Default = orig }()

	rec := &recordingLogger{}
	Default = rec

	Debugf("d %d", 1)
	Infof("i %d", 2)
	Warnf("w %d", 3)
	Errorf("e %d", 4)
	Info("plain")

	require.Equal(t, []string{
		"debug: d 1",
		"info: i 2",
		"warn: w 3",
		"error: e 4",
		"info: plain",
	}, rec.lines)
}

func TestSetLevel(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zapcore.Level
	}{
		{name: "debug", level: LevelDebug, want: zapcore.DebugLevel},
		{name: "warn", level: LevelWarn, want: zapcore.WarnLevel},
		{name: "error", level: LevelError, want: zapcore.ErrorLevel},
		{name: "fatal", level: LevelFatal, want: zapcore.FatalLevel},
		{name: "info", level: LevelInfo, want: zapcore.InfoLevel},
		{name: "unknown falls back to info", level: "verbose", want: zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLevel(tt.level)
			require.Equal(t, tt.want, atomicLevel.Level())
		})
	}
	SetLevel(LevelInfo)
}
