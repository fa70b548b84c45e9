// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package log

import (
	"flag"
	"fmt"
	"io"
	golog "log"
	"sync/atomic"
)

var golevel = Info

var added int32

// flagged is set once the -log flag has been given a value.
var flagged int32

// AddFlags adds a standard log level flag to the flag.CommandLine
// flag set. Calls after the first are ignored.
func AddFlags() {
	if atomic.AddInt32(&added, 1) != 1 {
		Error.Printf("log.AddFlags: called twice!")
		return
	}
	flag.Var(new(logFlag), "log", "set log level (off, error, info, debug)")
}

// SetFlags sets the output flags for the Go standard logger.
func SetFlags(flag int) {
	golog.SetFlags(flag)
}

// SetOutput sets the output destination for the Go standard logger.
func SetOutput(w io.Writer) {
	golog.SetOutput(w)
}

// SetLevel sets the log level for the Go standard logger.
// It should be called once at the beginning of a program's main.
func SetLevel(level Level) {
	golevel = level
}

// FlagLevel returns the level chosen with the -log flag, and whether
// the flag was set. Outputters that manage their own verbosity use it
// to honor an explicit -log.
func FlagLevel() (Level, bool) {
	if atomic.LoadInt32(&flagged) == 0 {
		return Info, false
	}
	return golevel, true
}

type logFlag string

func (f logFlag) String() string {
	return string(f)
}

func (f *logFlag) Set(level string) error {
	l, err := parseLevel(level)
	if err != nil {
		return err
	}
	*f = logFlag(level)
	golevel = l
	atomic.StoreInt32(&flagged, 1)
	return nil
}

// Get implements flag.Getter.
func (logFlag) Get() interface{} {
	return golevel
}

func parseLevel(level string) (Level, error) {
	switch level {
	case "off":
		return Off, nil
	case "error":
		return Error, nil
	case "info":
		return Info, nil
	case "debug":
		return Debug, nil
	}
	return Off, fmt.Errorf("invalid log level %q", level)
}

type gologOutputter struct{}

func (gologOutputter) Level() Level { return golevel }

func (gologOutputter) Output(calldepth int, level Level, s string) error {
	if golevel < level {
		return nil
	}
	return golog.Output(calldepth+1, s)
}
