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

package cor

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const meterName = "github.com/jaycherian/gcp-go-media-assembly"

// BaseCommand carries the name, telemetry handles and parameter keys every
// command needs. Concrete commands embed it and implement Execute.
type BaseCommand struct {
	Name            string
	InputParamName  string
	OutputParamName string
	Tracer          trace.Tracer
	Meter           metric.Meter
	SuccessCounter  metric.Int64Counter
	ErrorCounter    metric.Int64Counter
	Log             *slog.Logger
}

func NewBaseCommand(name string) *BaseCommand {
	meter := otel.Meter(meterName)
	log := slog.Default().With("command", name)

	successCounter, err := meter.Int64Counter(fmt.Sprintf("%s.counter.success", name))
	if err != nil {
		log.Warn("failed to create success counter", "error", err)
	}
	errorCounter, err := meter.Int64Counter(fmt.Sprintf("%s.counter.error", name))
	if err != nil {
		log.Warn("failed to create error counter", "error", err)
	}

	return &BaseCommand{
		Name:           name,
		Tracer:         otel.Tracer(name),
		Meter:          meter,
		SuccessCounter: successCounter,
		ErrorCounter:   errorCounter,
		Log:            log,
	}
}

func (c *BaseCommand) GetName() string {
	return c.Name
}

// IsExecutable requires a bound Go context and a value under the input key.
func (c *BaseCommand) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil && context.Get(c.GetInputParam()) != nil
}

func (c *BaseCommand) GetInputParam() string {
	if len(c.InputParamName) == 0 {
		return CtxIn
	}
	return c.InputParamName
}

func (c *BaseCommand) GetOutputParam() string {
	if len(c.OutputParamName) == 0 {
		return CtxOut
	}
	return c.OutputParamName
}

func (c *BaseCommand) GetTracer() trace.Tracer {
	return c.Tracer
}

func (c *BaseCommand) GetMeter() metric.Meter {
	return c.Meter
}

func (c *BaseCommand) GetSuccessCounter() metric.Int64Counter {
	return c.SuccessCounter
}

func (c *BaseCommand) GetErrorCounter() metric.Int64Counter {
	return c.ErrorCounter
}

// Succeeded bumps the success counter.
func (c *BaseCommand) Succeeded(ctx context.Context, attrs ...attribute.KeyValue) {
	if c.SuccessCounter != nil {
		c.SuccessCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// Fail records err on the chain context under the command name, bumps the
// error counter and logs it.
func (c *BaseCommand) Fail(chCtx Context, err error) {
	ctx := chCtx.GetContext()
	if ctx == nil {
		ctx = context.Background()
	}
	chCtx.AddError(c.GetName(), err)
	if c.ErrorCounter != nil {
		c.ErrorCounter.Add(ctx, 1)
	}
	c.logger().ErrorContext(ctx, "command failed", "error", err)
}

func (c *BaseCommand) logger() *slog.Logger {
	if c.Log == nil {
		return slog.Default().With("command", c.Name)
	}
	return c.Log
}
