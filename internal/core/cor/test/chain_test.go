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

package cor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-media-assembly/internal/core/cor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appendCommand appends its suffix to the string found under CtxIn.
type appendCommand struct {
	cor.BaseCommand
	suffix string
	err    error
	ran    *[]string
}

func newAppend(name, suffix string, ran *[]string) *appendCommand {
	return &appendCommand{BaseCommand: *cor.NewBaseCommand(name), suffix: suffix, ran: ran}
}

func (a *appendCommand) Execute(ctx cor.Context) {
	*a.ran = append(*a.ran, a.Name)
	if a.err != nil {
		a.Fail(ctx, a.err)
		return
	}
	in := ctx.Get(a.GetInputParam()).(string)
	ctx.Add(a.GetOutputParam(), in+a.suffix)
	a.Succeeded(ctx.GetContext())
}

func TestChainPipesOutputToInput(t *testing.T) {
	var ran []string
	chain := cor.NewBaseChain("pipe")
	chain.AddCommand(newAppend("a", "-a", &ran)).
		AddCommand(newAppend("b", "-b", &ran)).
		AddCommand(newAppend("c", "-c", &ran))

	ctx := cor.NewBaseContextWith(context.Background())
	ctx.Add(cor.CtxIn, "x")
	chain.Execute(ctx)

	require.NoError(t, ctx.Err())
	assert.Equal(t, []string{"a", "b", "c"}, ran)
	assert.Equal(t, "x-a-b-c", ctx.Get(cor.CtxIn))
}

func TestChainStopsAtFirstError(t *testing.T) {
	var ran []string
	boom := errors.New("boom")
	failing := newAppend("b", "-b", &ran)
	failing.err = boom

	chain := cor.NewBaseChain("stop")
	chain.AddCommand(newAppend("a", "-a", &ran)).AddCommand(failing).AddCommand(newAppend("c", "-c", &ran))

	ctx := cor.NewBaseContextWith(context.Background())
	ctx.Add(cor.CtxIn, "x")
	chain.Execute(ctx)

	assert.Equal(t, []string{"a", "b"}, ran)
	assert.ErrorIs(t, ctx.Err(), boom)
	assert.Contains(t, ctx.GetErrors(), "b")
}

func TestChainContinueOnFailure(t *testing.T) {
	var ran []string
	failing := newAppend("a", "-a", &ran)
	failing.err = errors.New("first")
	second := newAppend("b", "-b", &ran)
	second.err = errors.New("second")
	failing.InputParamName = "seed"
	second.InputParamName = "seed"

	chain := cor.NewBaseChain("continue")
	chain.ContinueOnFailure(true)
	chain.AddCommand(failing).AddCommand(second)

	ctx := cor.NewBaseContextWith(context.Background())
	ctx.Add("seed", "x")
	chain.Execute(ctx)

	assert.Equal(t, []string{"a", "b"}, ran)
	assert.EqualError(t, ctx.Err(), "first")
	assert.Len(t, ctx.GetErrors(), 2)
}

func TestChainHonoursCancellation(t *testing.T) {
	var ran []string
	chain := cor.NewBaseChain("cancel")
	chain.AddCommand(newAppend("a", "-a", &ran))

	parent, cancel := context.WithCancel(context.Background())
	cancel()
	ctx := cor.NewBaseContextWith(parent)
	ctx.Add(cor.CtxIn, "x")
	chain.Execute(ctx)

	assert.Empty(t, ran)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestChainRecordsMissingInput(t *testing.T) {
	var ran []string
	chain := cor.NewBaseChain("missing")
	chain.AddCommand(newAppend("a", "-a", &ran))

	ctx := cor.NewBaseContextWith(context.Background())
	chain.Execute(ctx)

	assert.Empty(t, ran)
	assert.ErrorIs(t, ctx.Err(), cor.ErrNotExecutable)
}

func TestContextCloseRemovesScratch(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "session")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	file := filepath.Join(root, "loose.tmp")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	ctx := cor.NewBaseContext()
	ctx.AddTempDir(dir)
	ctx.AddTempFile(file)
	ctx.AddTempFile(filepath.Join(root, "never-created"))
	ctx.Close()
	ctx.Close()

	assert.NoDirExists(t, dir)
	assert.NoFileExists(t, file)
}
