package queue

import "context"

// Notifier is the broker-backed implementation of the notification
// collaborators the services and handlers depend on. URL overrides the
// RABBITMQ_URL/AMQP_URL environment fallback when set.
type Notifier struct {
	URL string
}

func (n Notifier) OrderConfirmed(ctx context.Context, ev OrderConfirmedEvent) error {
	return publish(ctx, n.brokerURL(), orderQueueName, ev)
}

func (n Notifier) AccountEmail(ctx context.Context, ev AccountEmailEvent) error {
	return publish(ctx, n.brokerURL(), emailQueueName, ev)
}

func (n Notifier) brokerURL() string {
	if n.URL != "" {
		return n.URL
	}
	return brokerURL()
}
