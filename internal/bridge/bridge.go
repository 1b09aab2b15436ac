// Package bridge runs the live meter pipeline: an indefinite wildcard
// MQTT subscription that validates each inbound message and writes one
// point per message.
package bridge

import (
	"context"
	"errors"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/calumet/energy-bridge/internal/database"
	"github.com/calumet/energy-bridge/internal/readings"
)

// Bridge subscribes to every topic on the meter's broker and writes a
// point for each recognized message. Messages are processed one at a
// time on the client's callback; there is no queue and no parallelism.
type Bridge struct {
	broker   string
	clientID string
	repo     database.PointRepository
	logger   *logrus.Logger

	client mqtt.Client
}

func New(brokerHost string, brokerPort int, clientID string, repo database.PointRepository, logger *logrus.Logger) *Bridge {
	if clientID == "" {
		clientID = "energy-bridge"
	}
	return &Bridge{
		broker: fmt.Sprintf("tcp://%s:%d", brokerHost, brokerPort),
		// Suffix with a fresh ID so a crashed instance's session does
		// not collide with its replacement.
		clientID: fmt.Sprintf("%s-%s", clientID, uuid.NewString()[:8]),
		repo:     repo,
		logger:   logger,
	}
}

// Run connects, subscribes to the wildcard topic, and blocks until the
// context is canceled. An unrecognized topic is skipped; a malformed
// payload on a recognized topic is fatal for the process.
func (b *Bridge) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(b.broker).
		SetClientID(b.clientID).
		SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
			if err := b.handleMessage(ctx, msg.Topic(), msg.Payload()); err != nil {
				b.logger.WithField("topic", msg.Topic()).Fatalf("Failed to process message: %v", err)
			}
		})

	b.client = mqtt.NewClient(opts)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("broker connect: %w", token.Error())
	}
	defer b.client.Disconnect(250)

	if token := b.client.Subscribe("#", 0, nil); token.Wait() && token.Error() != nil {
		return fmt.Errorf("broker subscribe: %w", token.Error())
	}
	b.logger.WithFields(logrus.Fields{
		"broker":    b.broker,
		"client_id": b.clientID,
	}).Info("Subscribed, processing messages")

	<-ctx.Done()
	b.logger.Info("Shutting down")
	return nil
}

// handleMessage processes one inbound message: decode by topic,
// validate, convert, write. Unrecognized topics are a counted no-op.
func (b *Bridge) handleMessage(ctx context.Context, topic string, payload []byte) error {
	messagesReceived.Inc()

	r, err := readings.Decode(topic, payload)
	if errors.Is(err, readings.ErrUnrecognizedTopic) {
		unrecognizedTopics.Inc()
		b.logger.WithField("topic", topic).Debug("Skipping unrecognized topic")
		return nil
	}
	if err != nil {
		return err
	}

	if err := b.repo.WritePoint(ctx, r.Point()); err != nil {
		return fmt.Errorf("failed to write point: %w", err)
	}
	pointsWritten.Inc()
	return nil
}
