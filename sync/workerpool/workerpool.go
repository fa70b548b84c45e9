// Package workerpool runs tasks with bounded concurrency. Tasks are
// admitted in the order in which they are enqueued: each task takes a
// permit from the pool's semaphore before it starts and returns it when
// it finishes.
package workerpool

import (
	"context"
	"sync"

	"github.com/grailbio/permits/errors"
	"github.com/grailbio/permits/log"
	"github.com/grailbio/permits/semaphore"
)

// Task provides an interface for an individual task. Tasks are executed by
// calling the Do function.
type Task interface {
	Do(grp *TaskGroup) error
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc func(grp *TaskGroup) error

// Do implements Task.
func (f TaskFunc) Do(grp *TaskGroup) error { return f(grp) }

// WorkerPool provides a mechanism for executing Tasks with a specific
// concurrency. A TaskGroup allows Tasks to be grouped together so the
// parent process can wait for all Tasks in a TaskGroup to complete.
// Tasks can create new Tasks and add them to the TaskGroup, or create
// new TaskGroups. A simple example looks like this:
//
//	wp := workerpool.New(ctx, 3)
//	tg1 := wp.NewTaskGroup("context1")
//	tg1.Enqueue(MyFirstTask, true)
//	tg2 := wp.NewTaskGroup("context2")
//	tg2.Enqueue(MySecondTask, true)
//	err1 := tg1.Wait()
//	err2 := tg2.Wait()
//	wp.Wait()
//
// No more than Concurrency tasks, across all of the pool's groups,
// run at any time.
type WorkerPool struct {
	Ctx         context.Context
	Concurrency int
	sem         *semaphore.Semaphore
	groups      sync.WaitGroup
}

// New creates a WorkerPool with the given concurrency.
func New(ctx context.Context, concurrency int) *WorkerPool {
	return &WorkerPool{
		Ctx:         ctx,
		Concurrency: concurrency,
		sem:         semaphore.New(concurrency),
	}
}

// TaskGroup is used to group Tasks together so the consumer can wait for a
// specific subgroup of Tasks to complete.
type TaskGroup struct {
	Name     string
	Wp       *WorkerPool
	errs     errors.Once
	activity sync.WaitGroup
}

// NewTaskGroup creates a TaskGroup for Tasks to be executed in.
func (wp *WorkerPool) NewTaskGroup(name string) *TaskGroup {
	log.Debug.Printf("workerpool: creating task group %s", name)
	wp.groups.Add(1)
	return &TaskGroup{Name: name, Wp: wp}
}

// Enqueue schedules a Task. If block is true, Enqueue waits for a
// permit, returning false only if the pool's context is done first.
// If block is false and no permit is immediately available, the
// function returns false without scheduling the task.
func (grp *TaskGroup) Enqueue(t Task, block bool) bool {
	h := grp.Wp.sem.Acquire()
	if block {
		if err := h.Wait(grp.Wp.Ctx); err != nil {
			grp.errs.Set(err)
			return false
		}
	} else if !h.Ready() && h.Cancel() {
		return false
	}
	grp.activity.Add(1)
	go func() {
		defer grp.activity.Done()
		defer grp.Wp.sem.Release()
		if err := grp.Wp.Ctx.Err(); err != nil {
			grp.errs.Set(errors.E(err, "task group", grp.Name))
			return
		}
		grp.errs.Set(t.Do(grp))
	}()
	return true
}

// Wait blocks until all Tasks in this TaskGroup have completed. It
// returns the first error returned by a task, if any.
func (grp *TaskGroup) Wait() error {
	grp.activity.Wait()
	grp.Wp.groups.Done()
	return grp.errs.Err()
}

// Wait blocks until all TaskGroups in the WorkerPool have completed.
func (wp *WorkerPool) Wait() {
	wp.groups.Wait()
}

// Err returns the context.Context error to determine if WorkerPool
// stopped due to the context.
func (wp *WorkerPool) Err() error {
	return wp.Ctx.Err()
}
