package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	natspkg "github.com/gsdc-platform/adminq/service/nats"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/urfave/cli/v2"
)

// subscribeCommand streams queue events from NATS JetStream.
func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Subscribe to queue events",
		ArgsUsage: "[subject]",
		Description: `Subscribe to real-time admin queue events published to NATS JetStream.

Transaction events are published to admin.tx.{queued|approved|rejected|executed}
and redemption events to admin.redemption.{requested|processed}. With no
argument, all events under admin.> are streamed.

Example:
  adminq nats subscribe admin.tx.executed --json`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL",
				EnvVars: []string{"NATS_URL"},
				Value:   "nats://localhost:4222",
			},
			&cli.BoolFlag{
				Name:    "durable",
				Aliases: []string{"d"},
				Usage:   "Create a durable consumer (survives restarts)",
			},
			&cli.StringFlag{
				Name:  "consumer-name",
				Usage: "Consumer name (required for durable)",
				Value: "adminq-cli",
			},
		},
		Action: func(c *cli.Context) error {
			subject := natspkg.StreamSubjects
			if c.NArg() > 0 {
				subject = c.Args().First()
			}
			return streamEvents(subject, c.String("nats-url"), c.Bool("durable"), c.String("consumer-name"), c.Bool("json"))
		},
	}
}

// streamEvents connects to NATS and streams queue events until interrupted.
func streamEvents(subject, natsURL string, durable bool, consumerName string, jsonOutput bool) error {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if !jsonOutput {
		fmt.Printf("📡 Subscribing to: %s\n", subject)
		fmt.Printf("   NATS: %s\n", natsURL)
		if durable {
			fmt.Printf("   Consumer: %s (durable)\n", consumerName)
		}
		fmt.Printf("\nWaiting for events... (Ctrl-C to exit)\n\n")
	}

	consumerConfig := jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}

	if durable {
		consumerConfig.Durable = consumerName
		consumerConfig.Name = consumerName
	}

	cons, err := js.CreateOrUpdateConsumer(context.Background(), natspkg.StreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	msgChan := make(chan jetstream.Msg, 10)

	go func() {
		_, _ = cons.Consume(func(msg jetstream.Msg) {
			msgChan <- msg
		})
	}()

	count := 0
	for {
		select {
		case msg := <-msgChan:
			count++
			printEvent(msg, count, jsonOutput)
			msg.Ack()

		case <-sigChan:
			if !jsonOutput {
				fmt.Printf("\n\n✅ Received %d events\n", count)
				fmt.Println("Shutting down...")
			}
			return nil
		}
	}
}

func printEvent(msg jetstream.Msg, count int, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(string(msg.Data()))
		return
	}

	fmt.Printf("─────────────────────────────────────────────────────\n")
	fmt.Printf("Event #%d (%s)\n", count, msg.Subject())
	fmt.Printf("─────────────────────────────────────────────────────\n")

	if strings.HasPrefix(msg.Subject(), "admin.redemption.") {
		var event natspkg.RedemptionEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing event: %v\n", err)
			return
		}
		fmt.Printf("Kind:         %s\n", event.Kind)
		fmt.Printf("Request:      %d\n", event.RequestID)
		fmt.Printf("User:         %s\n", event.User)
		fmt.Printf("Amount:       %s\n", event.Amount)
		fmt.Printf("Approved:     %t\n", event.Approved)
		if event.BurnTxID != nil {
			fmt.Printf("Burn Tx:      %d\n", *event.BurnTxID)
		}
		if event.ProcessedBy != "" {
			fmt.Printf("Processed By: %s\n", event.ProcessedBy)
		}
		fmt.Printf("Published:    %s\n\n", event.PublishedAt.Format(time.RFC3339))
		return
	}

	var event natspkg.TransactionEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing event: %v\n", err)
		return
	}
	fmt.Printf("Kind:         %s\n", event.Kind)
	fmt.Printf("Tx:           %d (%s)\n", event.TxID, event.TxType)
	fmt.Printf("Status:       %s\n", event.Status)
	fmt.Printf("Initiator:    %s\n", event.Initiator)
	if event.Target != "" {
		fmt.Printf("Target:       %s\n", event.Target)
	}
	if event.Amount != "" {
		fmt.Printf("Amount:       %s\n", event.Amount)
	}
	if event.Approver != "" {
		fmt.Printf("Approver:     %s\n", event.Approver)
	}
	if event.Reason != "" {
		fmt.Printf("Reason:       %s\n", event.Reason)
	}
	if event.Auto {
		fmt.Printf("Auto:         true\n")
	}
	fmt.Printf("Published:    %s\n\n", event.PublishedAt.Format(time.RFC3339))
}
