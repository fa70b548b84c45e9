// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package log_test

import (
	"flag"
	"os"
	"testing"

	"github.com/grailbio/permits/log"
)

type testOutputter struct {
	level    log.Level
	messages map[log.Level][]string
}

func newTestOutputter(level log.Level) *testOutputter {
	return &testOutputter{level, make(map[log.Level][]string)}
}

func (t *testOutputter) Empty() bool {
	for _, m := range t.messages {
		if len(m) != 0 {
			return false
		}
	}
	return true
}

func (t *testOutputter) Next(level log.Level) string {
	if len(t.messages[level]) == 0 {
		return ""
	}
	var m string
	m, t.messages[level] = t.messages[level][0], t.messages[level][1:]
	return m
}

func (t *testOutputter) Level() log.Level {
	return t.level
}

func (t *testOutputter) Output(calldepth int, level log.Level, s string) error {
	t.messages[level] = append(t.messages[level], s)
	return nil
}

func TestLog(t *testing.T) {
	out := newTestOutputter(log.Info)
	defer log.SetOutputter(log.SetOutputter(out))
	log.Printf("hello %q", "world")
	if got, want := out.Next(log.Info), `hello "world"`; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	log.Error.Print(1, 2, 3)
	if got, want := out.Next(log.Error), "1 2 3"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	log.Debug.Printf("semaphore: close dropped %d waiters", 3)
	if got, want := out.Next(log.Debug), ""; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if !out.Empty() {
		t.Error("extra messages")
	}
}

func TestPanicf(t *testing.T) {
	out := newTestOutputter(log.Info)
	defer log.SetOutputter(log.SetOutputter(out))
	defer func() {
		if got, want := recover(), "invalid capacity: -1"; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
		if got, want := out.Next(log.Error), "invalid capacity: -1"; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	}()
	log.Panicf("invalid capacity: %d", -1)
}

func TestLevelString(t *testing.T) {
	for level, want := range map[log.Level]string{
		log.Off:      "off",
		log.Error:    "error",
		log.Info:     "info",
		log.Debug:    "debug",
		log.Level(3): "debug3",
	} {
		if got := level.String(); got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func Example() {
	log.SetOutput(os.Stdout)
	log.SetFlags(0)
	log.Print("hello, world!")
	log.Error.Print("hello from error")
	log.Debug.Print("invisible")

	// Output:
	// hello, world!
	// hello from error
}

func TestLogFlag(t *testing.T) {
	log.AddFlags()
	if _, ok := log.FlagLevel(); ok {
		t.Fatal("-log reported set before parsing")
	}
	if err := flag.CommandLine.Set("log", "verbose"); err == nil {
		t.Error("expected error for invalid level")
	}
	if err := flag.CommandLine.Set("log", "debug"); err != nil {
		t.Fatal(err)
	}
	defer flag.CommandLine.Set("log", "info")
	if got, ok := log.FlagLevel(); !ok || got != log.Debug {
		t.Errorf("got %v, %v, want debug, true", got, ok)
	}
	if got, want := flag.Lookup("log").Value.(flag.Getter).Get(), log.Debug; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
