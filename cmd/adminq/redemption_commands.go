package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/gsdc-platform/adminq/client"
	"github.com/urfave/cli/v2"
)

func redemptionCommands() *cli.Command {
	return &cli.Command{
		Name:  "redemption",
		Usage: "Redemption request commands",
		Subcommands: []*cli.Command{
			requestRedemptionCommand(),
			getRedemptionCommand(),
			listRedemptionsCommand(),
			processRedemptionCommand(),
		},
	}
}

func requestRedemptionCommand() *cli.Command {
	return &cli.Command{
		Name:      "request",
		Usage:     "Request a redemption on behalf of a user",
		ArgsUsage: "<user_address> <amount>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("requires two arguments: user address and amount")
			}

			cl := getClient(c)
			req, err := cl.RequestRedemption(context.Background(), c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return fmt.Errorf("failed to request redemption: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(req)
			}

			fmt.Printf("✓ Redemption requested\n")
			printRedemption(req)
			return nil
		},
	}
}

func getRedemptionCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Get redemption request details",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := argID(c)
			if err != nil {
				return err
			}

			cl := getClient(c)
			req, err := cl.GetRedemption(context.Background(), id)
			if err != nil {
				return fmt.Errorf("failed to get redemption: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(req)
			}

			printRedemption(req)
			return nil
		},
	}
}

func listRedemptionsCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Usage:   "List redemption requests",
		Aliases: []string{"ls"},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "pending",
				Usage: "Only show unprocessed requests",
			},
			&cli.BoolFlag{
				Name:  "processed",
				Usage: "Only show processed requests",
			},
		},
		Action: func(c *cli.Context) error {
			var processed *bool
			if c.Bool("pending") && c.Bool("processed") {
				return fmt.Errorf("--pending and --processed are mutually exclusive")
			}
			if c.Bool("pending") {
				v := false
				processed = &v
			}
			if c.Bool("processed") {
				v := true
				processed = &v
			}

			cl := getClient(c)
			reqs, err := cl.ListRedemptions(context.Background(), processed)
			if err != nil {
				return fmt.Errorf("failed to list redemptions: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(reqs)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSER\tAMOUNT\tPROCESSED\tAPPROVED\tBURN TX\tCREATED")
			for _, req := range reqs {
				burnTx := "-"
				if req.BurnTxID != nil {
					burnTx = fmt.Sprintf("%d", *req.BurnTxID)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%t\t%s\t%s\n",
					req.ID,
					req.User,
					req.Amount,
					req.Processed,
					req.Approved,
					burnTx,
					req.CreatedAt.Format(time.RFC3339),
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d redemptions\n", len(reqs))
			return nil
		},
	}
}

func processRedemptionCommand() *cli.Command {
	return &cli.Command{
		Name:      "process",
		Usage:     "Approve or deny a redemption request",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "admin",
				Usage:    "Admin address processing the request",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "deny",
				Usage: "Deny the request instead of approving it",
			},
		},
		Action: func(c *cli.Context) error {
			id, err := argID(c)
			if err != nil {
				return err
			}

			cl := getClient(c)
			req, err := cl.ProcessRedemption(context.Background(), id, !c.Bool("deny"), c.String("admin"))
			if err != nil {
				return fmt.Errorf("failed to process redemption: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(req)
			}

			if req.Approved {
				fmt.Printf("✓ Redemption %d approved\n", req.ID)
				if req.BurnTxID != nil {
					fmt.Printf("  Burn transaction queued: %d\n", *req.BurnTxID)
				}
			} else {
				fmt.Printf("✓ Redemption %d denied\n", req.ID)
			}
			printRedemption(req)
			return nil
		},
	}
}

func printRedemption(req *client.Redemption) {
	fmt.Printf("ID:           %d\n", req.ID)
	fmt.Printf("User:         %s\n", req.User)
	fmt.Printf("Amount:       %s\n", req.Amount)
	fmt.Printf("Processed:    %t\n", req.Processed)
	fmt.Printf("Approved:     %t\n", req.Approved)
	if req.BurnTxID != nil {
		fmt.Printf("Burn Tx:      %d\n", *req.BurnTxID)
	}
	if req.ProcessedBy != "" {
		fmt.Printf("Processed By: %s\n", req.ProcessedBy)
	}
	fmt.Printf("Created:      %s\n", req.CreatedAt.Format(time.RFC3339))
	if req.ProcessedAt != nil {
		fmt.Printf("Processed At: %s\n", req.ProcessedAt.Format(time.RFC3339))
	}
}
