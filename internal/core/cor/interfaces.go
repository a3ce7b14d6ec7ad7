// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cor is a small chain-of-responsibility toolkit. A workflow is a
// Chain of Commands sharing one Context; each command reads its input from
// the context, does one unit of work and writes its output back. The chain
// pipes CtxOut of one command into CtxIn of the next, stops at the first
// recorded error and wraps every command in its own trace span.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Keys used by BaseChain to pipe a command's primary output into the next
// command's primary input.
const (
	CtxIn  = "__IN__"
	CtxOut = "__OUT__"
)

// Context is the property bag shared by every command of one workflow run.
// It also owns the scratch files and directories created during the run and
// releases them in Close.
type Context interface {
	SetContext(context context.Context)
	GetContext() context.Context

	Add(key string, value interface{}) Context
	Get(key string) interface{}
	Remove(key string)

	// AddError records a failure. Errors keep their insertion order so Err
	// can report the one that stopped the chain.
	AddError(key string, err error)
	GetErrors() map[string]error
	HasErrors() bool
	Err() error

	AddTempFile(file string)
	GetTempFiles() []string
	AddTempDir(dir string)
	GetTempDirs() []string

	// Close removes every tracked temp file and directory. It is safe to call
	// more than once.
	Close()
}

type Executable interface {
	Execute(context Context)
}

// Command is one step of a workflow.
type Command interface {
	Executable

	GetName() string
	GetInputParam() string
	GetOutputParam() string

	// IsExecutable is the precondition checked by the chain before Execute.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is an ordered list of commands; it is itself a Command so chains
// nest.
type Chain interface {
	Command
	ContinueOnFailure(bool) Chain
	AddCommand(command Command) Chain
}
