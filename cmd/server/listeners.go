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

package main

import (
	"context"
	"log/slog"

	"github.com/jaycherian/gcp-go-media-assembly/internal/cloud"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/workflow"
)

// AssemblyRequestsListener is the topic_subscriptions key whose messages
// carry assembly requests (or notifications of uploaded request manifests).
const AssemblyRequestsListener = "AssemblyRequests"

// SetupListeners attaches the assembly workflow to its subscription and starts
// receiving. Nothing is started when the subscription is not configured.
func SetupListeners(config *cloud.Config, cloudClients *cloud.ServiceClients, deps *workflow.Dependencies, ctx context.Context) {
	listener, ok := cloudClients.PubSubListeners[AssemblyRequestsListener]
	if !ok {
		slog.Info("no assembly request subscription configured")
		return
	}
	listener.SetCommand(workflow.NewAssemblyWorkflow(config, deps))
	listener.Listen(ctx)
}
