// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package cmdutil provides utility routines for implementing command line
// tools.
package cmdutil

import (
	"github.com/grailbio/permits/log"
	"v.io/x/lib/vlog"
)

// VlogOutputter implements log.Outputter backed by vlog. An explicit
// -log flag takes precedence over vlog's verbosity.
type VlogOutputter struct{}

func (VlogOutputter) Level() log.Level {
	if level, ok := log.FlagLevel(); ok {
		return level
	}
	if vlog.V(1) {
		return log.Debug
	}
	return log.Info
}

func (VlogOutputter) Output(calldepth int, level log.Level, s string) error {
	// Notice that we do not add 1 to the call depth. In vlog, 0 depth means
	// that the caller's file/line will be used. This is different from the log
	// and github.com/grailbio/permits/log packages, where that's the behavior you
	// get with depth 1.
	flagLevel, flagged := log.FlagLevel()
	if flagged && level > flagLevel {
		return nil
	}
	switch level {
	case log.Off:
	case log.Error:
		vlog.ErrorDepth(calldepth, s)
	case log.Info:
		vlog.InfoDepth(calldepth, s)
	default:
		if flagged {
			vlog.InfoDepth(calldepth, s)
			break
		}
		vlog.VI(vlog.Level(level)).InfoDepth(calldepth, s)
	}
	return nil
}
