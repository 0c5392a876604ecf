package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
)

func queueCommands() *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Queue configuration and emergency pause commands",
		Subcommands: []*cli.Command{
			queueConfigCommand(),
			queuePauseCommand(),
			queueUnpauseCommand(),
			addressStatusCommand(),
		},
	}
}

func queueConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show queue configuration",
		Action: func(c *cli.Context) error {
			cl := getClient(c)
			cfg, err := cl.GetQueueConfig(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get queue config: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(cfg)
			}

			fmt.Printf("Cooldown Period:    %s\n", cfg.CooldownPeriod)
			fmt.Printf("Required Approvals: %d\n", cfg.RequiredApprovals)
			fmt.Printf("Paused:             %t\n", cfg.Paused)
			return nil
		},
	}
}

func queuePauseCommand() *cli.Command {
	return &cli.Command{
		Name:  "pause",
		Usage: "Pause the queue (blocks queuing, approval, and execution)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "admin",
				Usage:    "Admin address pausing the queue",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			cl := getClient(c)
			if err := cl.PauseQueue(context.Background(), c.String("admin")); err != nil {
				return fmt.Errorf("failed to pause queue: %w", err)
			}
			fmt.Println("✓ Queue paused")
			return nil
		},
	}
}

func queueUnpauseCommand() *cli.Command {
	return &cli.Command{
		Name:  "unpause",
		Usage: "Resume normal queue operation",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "admin",
				Usage:    "Admin address unpausing the queue",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			cl := getClient(c)
			if err := cl.UnpauseQueue(context.Background(), c.String("admin")); err != nil {
				return fmt.Errorf("failed to unpause queue: %w", err)
			}
			fmt.Println("✓ Queue unpaused")
			return nil
		},
	}
}

func addressStatusCommand() *cli.Command {
	return &cli.Command{
		Name:      "address",
		Usage:     "Show the blacklist, freeze, and role status of an address",
		ArgsUsage: "<address>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: address")
			}

			cl := getClient(c)
			status, err := cl.GetAddressStatus(context.Background(), c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to get address status: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(status)
			}

			fmt.Printf("Address:     %s\n", status.Address)
			fmt.Printf("Blacklisted: %t\n", status.Blacklisted)
			fmt.Printf("Frozen:      %t\n", status.Frozen)
			if len(status.Roles) > 0 {
				fmt.Printf("Roles:       %s\n", strings.Join(status.Roles, ", "))
			} else {
				fmt.Printf("Roles:       (none)\n")
			}
			return nil
		},
	}
}
