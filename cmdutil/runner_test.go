// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmdutil

import (
	"testing"

	"github.com/grailbio/permits/errors"
	"github.com/grailbio/permits/log"
	"github.com/stretchr/testify/assert"
	"v.io/x/lib/cmdline"
)

func TestRunnerShutdownOrder(t *testing.T) {
	defer log.SetOutputter(log.SetOutputter(VlogOutputter{}))
	var order []int
	run := RunnerFunc(func(_ *cmdline.Env, args []string) error {
		RegisterShutdown(func() { order = append(order, 1) })
		RegisterShutdown(func() { order = append(order, 2) })
		return errors.E(errors.Invalid, "bad args", args[0])
	})
	err := run.Run(cmdline.EnvFromOS(), []string{"x"})
	assert.True(t, errors.Is(errors.Invalid, err))
	assert.Equal(t, []int{2, 1}, order)

	// Shutdown functions run once.
	order = nil
	assert.NoError(t, RunnerFunc(func(*cmdline.Env, []string) error { return nil }).Run(cmdline.EnvFromOS(), nil))
	assert.Empty(t, order)
}
