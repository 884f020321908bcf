// Copyright 2025 ViralVibe Studio Authors
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
	"log"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// MessageHandler processes one Pub/Sub message payload. A nil return acks
// the message; an error leaves it unacked for redelivery.
type MessageHandler func(ctx context.Context, data []byte) error

// PubSubListener subscribes to one subscription and hands each message to a
// handler. Upstream systems use it to submit generation requests without
// going through the HTTP API. Listeners outlive individual requests, so they
// live alongside the other cloud clients.
type PubSubListener struct {
	client       *pubsub.Client
	subscription *pubsub.Subscription
	handler      MessageHandler
}

func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscriptionID string,
	handler MessageHandler,
) (*PubSubListener, error) {
	sub := pubsubClient.Subscription(subscriptionID)
	return &PubSubListener{
		client:       pubsubClient,
		subscription: sub,
		handler:      handler,
	}, nil
}

// SetHandler attaches a handler when the listener was created before the
// services it feeds. An already-set handler is never overwritten.
func (m *PubSubListener) SetHandler(handler MessageHandler) {
	if m.handler == nil {
		m.handler = handler
	}
}

// Listen starts receiving messages in a background goroutine. Canceling the
// context stops the receive loop.
func (m *PubSubListener) Listen(ctx context.Context) {
	log.Printf("listening: %s", m.subscription)

	go func() {
		tracer := otel.Tracer("message-listener")

		err := m.subscription.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
			spanCtx, span := tracer.Start(ctx, "receive-message")
			span.SetAttributes(attribute.String("msg", string(msg.Data)))

			if err := m.handler(spanCtx, msg.Data); err != nil {
				span.SetStatus(codes.Error, "failed")
				log.Printf("error handling message: %v", err)
				// Leaving the message unacked lets the subscription's retry
				// policy redeliver it.
			} else {
				span.SetStatus(codes.Ok, "success")
				msg.Ack()
			}
			span.End()
		})

		if err != nil {
			log.Printf("error receiving data: %v", err)
		}
	}()
}
