package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartConsumers connects to RabbitMQ, declares the order.confirmed and
// account.email queues (durable), and starts consuming both. Each message
// is rendered to an append-only file under logs/, standing in for a real
// mail sender. The function runs a reconnect loop with exponential
// backoff; processing errors reject the offending message so the server
// continues operating. An empty url falls back to the
// RABBITMQ_URL/AMQP_URL environment variables.
func StartConsumers(url string) error {
	if url == "" {
		url = brokerURL()
	}

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("queue-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		errc := make(chan error, 2)
		go func() { errc <- consumeLoop(conn, orderQueueName, handleOrderMessage) }()
		go func() { errc <- consumeLoop(conn, emailQueueName, handleEmailMessage) }()

		err = <-errc
		log.Printf("queue-consumer: consume loop ended: %v; reconnecting", err)
		_ = conn.Close()
		time.Sleep(2 * time.Second)
	}
}

func consumeLoop(conn *amqp.Connection, queueName string, handle func([]byte) error) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("queue-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handle(d.Body); err != nil {
			log.Printf("queue-consumer: handle %s message failed: %v", queueName, err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleOrderMessage(body []byte) error {
	var ev OrderConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	titles := make([]string, 0, len(ev.Items))
	for _, it := range ev.Items {
		titles = append(titles, fmt.Sprintf("%s (%d) %s", it.Name, it.Year, it.Price))
	}
	line := fmt.Sprintf("[%s] Order confirmed | order_id=%d | user_id=%d | email=%s | total=%s %s | items=[%s]\n",
		ev.PaidAt, ev.OrderID, ev.UserID, ev.Email, ev.TotalAmount, ev.Currency, strings.Join(titles, ", "))
	return appendLog("order.log", line)
}

func handleEmailMessage(body []byte) error {
	var ev AccountEmailEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Account email | kind=%s | user_id=%d | email=%s | token=%s\n",
		ev.IssuedAt, ev.Kind, ev.UserID, ev.Email, ev.Token)
	return appendLog("email.log", line)
}

func appendLog(name, line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
