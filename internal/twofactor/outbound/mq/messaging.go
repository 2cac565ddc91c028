package mq

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/shandysiswandi/shopauth/internal/pkg/instrument"
	"github.com/shandysiswandi/shopauth/internal/pkg/messaging"
	"github.com/shandysiswandi/shopauth/internal/twofactor/entity"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishTwoFactorEnabled(ctx context.Context, ev entity.TwoFactorEvent) error {
	return m.publish(ctx, "PublishTwoFactorEnabled", entity.TwoFactorEnabledDestination, ev)
}

func (m *Messaging) PublishTwoFactorDisabled(ctx context.Context, ev entity.TwoFactorEvent) error {
	return m.publish(ctx, "PublishTwoFactorDisabled", entity.TwoFactorDisabledDestination, ev)
}

// publish keys every message by user so brokers that partition or order by
// key keep one account's events in sequence.
func (m *Messaging) publish(ctx context.Context, name, destination string, ev entity.TwoFactorEvent) error {
	ctx, span := m.ins.Tracer("twofactor.outbound.mq").Start(ctx, name)
	defer span.End()

	body, err := json.Marshal(ev)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if _, err := m.client.Publish(ctx, destination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(strconv.FormatInt(ev.UserID, 10)),
		Headers: map[string]string{keyOfCorrelationID: instrument.GetCorrelationID(ctx)},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
