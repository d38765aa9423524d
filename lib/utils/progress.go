/*
Copyright 2018 Gravitational, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package utils

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Progress is a progress reporter for a fixed sequence of named steps,
// trimmed from gravity's lib/utils.Progress down to the console
// step-reporter submit-jobs actually drives.
type Progress interface {
	// NextStep prints information about the next step. It also prints
	// periodic updates on the current step if it takes longer than the
	// default timeout.
	NextStep(message string, args ...interface{})
	// Stop stops printing all updates.
	Stop()
}

type entry struct {
	message string
	current int
	cancel  context.CancelFunc
	context context.Context
}

// progressPrinter implements Progress, printing to stdout.
type progressPrinter struct {
	sync.Mutex
	title        string
	start        time.Time
	context      context.Context
	timeout      time.Duration
	steps        int
	currentStep  int
	currentEntry *entry
}

// NewConsoleProgress returns a Progress that reports steps/steps on
// stdout as submit-jobs advances through loading, submit/poll, and done.
func NewConsoleProgress(ctx context.Context, title string, steps int) Progress {
	return &progressPrinter{
		title:   title,
		start:   time.Now(),
		context: ctx,
		timeout: 10 * time.Second,
		steps:   steps,
	}
}

// NextStep prints information about the next step. It also prints
// updates on the current step if it takes longer than the default timeout.
func (p *progressPrinter) NextStep(message string, args ...interface{}) {
	p.Lock()
	defer p.Unlock()

	p.currentStep++
	message = fmt.Sprintf(message, args...)

	ctx, cancel := context.WithCancel(p.context)
	entry := &entry{
		current: p.currentStep,
		message: message,
		context: ctx,
		cancel:  cancel,
	}

	if p.currentEntry != nil {
		p.currentEntry.cancel()
	}
	p.currentEntry = entry
	p.printPeriodic(entry.current, entry.message, entry.context)
}

func (p *progressPrinter) printPeriodic(current int, message string, ctx context.Context) {
	start := time.Now()
	fmt.Fprintf(os.Stdout, "* [%v/%v] %v\n", current, p.steps, message)

	go func() {
		ticker := time.NewTicker(p.timeout)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				diff := humanize.RelTime(start, time.Now(), "elapsed", "elapsed")
				fmt.Fprintf(os.Stdout, "\tStill %v (%v)\n", message, diff)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops printing all updates.
func (p *progressPrinter) Stop() {
	p.Lock()
	defer p.Unlock()

	if p.currentEntry == nil {
		return
	}
	p.currentEntry.cancel()
	diff := humanize.RelTime(p.start, time.Now(), "", "")
	if p.currentEntry.current == p.steps {
		fmt.Fprintf(os.Stdout, "* [%v/%v] %v completed in %v\n", p.currentEntry.current, p.steps, p.title, diff)
	} else {
		fmt.Fprintf(os.Stdout, "* [%v/%v] %v aborted after %v\n", p.currentEntry.current, p.steps, p.title, diff)
	}
	p.currentEntry = nil
}
