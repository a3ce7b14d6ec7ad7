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

package cloud

import (
	"context"
	"log/slog"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PubSubListener feeds each message of a subscription into a command as a
// string under cor.CtxIn. A message is acked when the command succeeds or
// fails with a non-retryable kind, and nacked otherwise so Pub/Sub redelivers
// it (or routes it to the dead letter topic).
type PubSubListener struct {
	client       *pubsub.Client
	subscription *pubsub.Subscription
	command      cor.Command
	timeout      time.Duration
	log          *slog.Logger
}

func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscriptionID string,
	command cor.Command,
) (cmd *PubSubListener, err error) {
	sub := pubsubClient.Subscription(subscriptionID)
	return &PubSubListener{
		client:       pubsubClient,
		subscription: sub,
		command:      command,
		log:          slog.Default().With("component", "pubsub", "subscription", subscriptionID),
	}, nil
}

// SetCommand sets the command once; later calls are ignored.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// SetTimeout bounds the processing of one message.
func (m *PubSubListener) SetTimeout(timeout time.Duration) {
	m.timeout = timeout
}

// Listen starts receiving in a background goroutine until ctx is done.
func (m *PubSubListener) Listen(ctx context.Context) {
	m.log.Info("listening")
	go func() {
		err := m.subscription.Receive(ctx, func(msgCtx context.Context, msg *pubsub.Message) {
			m.Handle(msgCtx, msg.ID, msg.Data, msg.Ack, msg.Nack)
		})
		if err != nil {
			m.log.Error("error receiving data", "error", err)
		}
	}()
}

// Handle runs the command for one message payload and settles it.
func (m *PubSubListener) Handle(ctx context.Context, id string, data []byte, ack func(), nack func()) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	spanCtx, span := otel.Tracer("message-listener").Start(ctx, "receive-message")
	defer span.End()
	span.SetAttributes(attribute.String("message.id", id))

	chainCtx := cor.NewBaseContextWith(spanCtx)
	defer chainCtx.Close()
	chainCtx.Add(cor.CtxIn, string(data))

	m.command.Execute(chainCtx)

	err := chainCtx.Err()
	kind := model.KindOf(err)
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
		ack()
	case !kind.Retryable() && kind != model.KindCanceled:
		span.SetStatus(codes.Error, err.Error())
		m.log.WarnContext(spanCtx, "dropping message after permanent failure", "message_id", id, "kind", kind, "error", err)
		ack()
	default:
		span.SetStatus(codes.Error, err.Error())
		m.log.ErrorContext(spanCtx, "message processing failed, requesting redelivery", "message_id", id, "kind", kind, "error", err)
		nack()
	}
}
