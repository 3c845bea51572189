package notification

import (
	"context"
	"encoding/json"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/ecotracker/fillstate/internal/model"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// Notifier is the firehose: every update event is additionally published
// to a broker topic for downstream consumers such as reporting.
type Notifier interface {
	Notify(ctx context.Context, event model.UpdateEvent) error
}

type PulsarNotifier struct {
	producer pulsar.Producer
}

func NewPulsarNotifier(producer pulsar.Producer) *PulsarNotifier {
	return &PulsarNotifier{
		producer: producer,
	}
}

func (p *PulsarNotifier) Notify(ctx context.Context, event model.UpdateEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error("Failed to marshal update event", zap.Error(err))
		return err
	}
	message := &pulsar.ProducerMessage{
		Key:     event.TenantID,
		Payload: payload,
	}
	p.producer.SendAsync(ctx, message, func(msgID pulsar.MessageID, producerMessage *pulsar.ProducerMessage, err error) {
		if err != nil {
			log.Error("Failed to send message", zap.Error(err))
		} else {
			log.Info("Published message", zap.String("messageID", msgID.String()))
		}
	})
	p.producer.Flush()
	return nil
}
