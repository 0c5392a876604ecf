package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/gsdc-platform/adminq/client"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

func txCommands() *cli.Command {
	return &cli.Command{
		Name:  "tx",
		Usage: "Transaction queue commands",
		Subcommands: []*cli.Command{
			queueTxCommand(),
			getTxCommand(),
			listTxCommand(),
			pendingTxCommand(),
			approveTxCommand(),
			rejectTxCommand(),
			executeTxCommand(),
		},
	}
}

func queueTxCommand() *cli.Command {
	return &cli.Command{
		Name:      "queue",
		Usage:     "Queue an administrative transaction",
		ArgsUsage: "<tx_type>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "initiator",
				Aliases:  []string{"i"},
				Usage:    "Address queuing the transaction",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "target",
				Aliases: []string{"t"},
				Usage:   "Target address of the operation",
			},
			&cli.StringFlag{
				Name:    "amount",
				Aliases: []string{"a"},
				Usage:   "Token amount in base units (base-10 string)",
			},
			&cli.StringFlag{
				Name:  "data",
				Usage: "Operation payload (role name, blacklist flag, contract address)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: transaction type (e.g. MINT, BURN, BLACKLIST)")
			}

			cl := getClient(c)
			txn, err := cl.QueueTransaction(context.Background(), client.QueueTransactionParams{
				TxType:    c.Args().First(),
				Initiator: c.String("initiator"),
				Target:    c.String("target"),
				Amount:    c.String("amount"),
				Data:      c.String("data"),
			})
			if err != nil {
				return fmt.Errorf("failed to queue transaction: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(txn)
			}

			fmt.Printf("✓ Transaction queued\n")
			printTransaction(txn)
			return nil
		},
	}
}

func getTxCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Get transaction details",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := argID(c)
			if err != nil {
				return err
			}

			cl := getClient(c)
			txn, err := cl.GetTransaction(context.Background(), id)
			if err != nil {
				return fmt.Errorf("failed to get transaction: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(txn)
			}

			printTransaction(txn)
			return nil
		},
	}
}

func listTxCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Usage:   "List transactions",
		Aliases: []string{"ls"},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "status",
				Aliases: []string{"s"},
				Usage:   "Filter by status (PENDING, REJECTED, EXECUTED, AUTO_EXECUTED)",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of transactions",
				Value:   50,
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Offset into the result set",
			},
			&cli.StringSliceFlag{
				Name:    "must-jq",
				Usage:   "jq filter expression that must evaluate to true (can be specified multiple times, all must match)",
				Aliases: []string{"jq"},
			},
		},
		Action: func(c *cli.Context) error {
			jqFilters := c.StringSlice("must-jq")

			// Compile jq filters
			compiledJQFilters := make([]*gojq.Code, len(jqFilters))
			for i, filter := range jqFilters {
				query, err := gojq.Parse(filter)
				if err != nil {
					return fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
				}
				compiledJQFilters[i], err = gojq.Compile(query)
				if err != nil {
					return fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
				}
			}

			cl := getClient(c)
			txns, err := cl.ListTransactions(context.Background(), c.String("status"), c.Int("limit"), c.Int("offset"))
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}

			if len(compiledJQFilters) > 0 {
				filtered := make([]*client.Transaction, 0, len(txns))
				for _, txn := range txns {
					ok, err := matchesJQ(txn, compiledJQFilters)
					if err != nil {
						return err
					}
					if ok {
						filtered = append(filtered, txn)
					}
				}
				txns = filtered
			}

			if c.Bool("json") {
				return outputJSON(txns)
			}

			// Pretty table output
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tINITIATOR\tTARGET\tAMOUNT\tEXECUTE AFTER")
			for _, txn := range txns {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					txn.ID,
					txn.TxType,
					txn.Status,
					txn.Initiator,
					txn.Target,
					txn.Amount,
					txn.ExecuteAfter.Format(time.RFC3339),
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d transactions\n", len(txns))
			return nil
		},
	}
}

func pendingTxCommand() *cli.Command {
	return &cli.Command{
		Name:  "pending",
		Usage: "List pending transaction IDs",
		Action: func(c *cli.Context) error {
			cl := getClient(c)
			ids, err := cl.ListPendingIDs(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list pending transactions: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(ids)
			}

			for _, id := range ids {
				fmt.Println(id)
			}
			fmt.Fprintf(os.Stderr, "\nTotal: %d pending\n", len(ids))
			return nil
		},
	}
}

func approveTxCommand() *cli.Command {
	return &cli.Command{
		Name:      "approve",
		Usage:     "Approve a pending transaction, executing it immediately",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "approver",
				Usage:    "Address approving the transaction",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			id, err := argID(c)
			if err != nil {
				return err
			}

			cl := getClient(c)
			txn, err := cl.Approve(context.Background(), id, c.String("approver"))
			if err != nil {
				return fmt.Errorf("failed to approve transaction: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(txn)
			}

			fmt.Printf("✓ Transaction %d approved and executed\n", txn.ID)
			printTransaction(txn)
			return nil
		},
	}
}

func rejectTxCommand() *cli.Command {
	return &cli.Command{
		Name:      "reject",
		Usage:     "Reject a pending transaction",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "approver",
				Usage:    "Address rejecting the transaction",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "reason",
				Aliases:  []string{"r"},
				Usage:    "Reason for rejection",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			id, err := argID(c)
			if err != nil {
				return err
			}

			cl := getClient(c)
			txn, err := cl.Reject(context.Background(), id, c.String("approver"), c.String("reason"))
			if err != nil {
				return fmt.Errorf("failed to reject transaction: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(txn)
			}

			fmt.Printf("✓ Transaction %d rejected\n", txn.ID)
			printTransaction(txn)
			return nil
		},
	}
}

func executeTxCommand() *cli.Command {
	return &cli.Command{
		Name:      "execute",
		Usage:     "Execute a pending transaction whose cooldown has elapsed",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := argID(c)
			if err != nil {
				return err
			}

			cl := getClient(c)
			txn, err := cl.Execute(context.Background(), id)
			if err != nil {
				return fmt.Errorf("failed to execute transaction: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(txn)
			}

			fmt.Printf("✓ Transaction %d executed\n", txn.ID)
			printTransaction(txn)
			return nil
		},
	}
}

// matchesJQ reports whether every compiled filter evaluates to a truthy
// value when run over the transaction's JSON representation.
func matchesJQ(txn *client.Transaction, filters []*gojq.Code) (bool, error) {
	data, err := json.Marshal(txn)
	if err != nil {
		return false, fmt.Errorf("failed to marshal transaction: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}

	for _, code := range filters {
		iter := code.Run(doc)
		v, ok := iter.Next()
		if !ok {
			return false, nil
		}
		if _, isErr := v.(error); isErr {
			return false, nil
		}
		if !isTruthy(v) {
			return false, nil
		}
	}
	return true, nil
}

// isTruthy checks if a jq result value is truthy.
// In jq, false and null are falsy, everything else is truthy.
func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

func printTransaction(txn *client.Transaction) {
	fmt.Printf("ID:            %d\n", txn.ID)
	fmt.Printf("Type:          %s\n", txn.TxType)
	fmt.Printf("Status:        %s\n", txn.Status)
	fmt.Printf("Initiator:     %s\n", txn.Initiator)
	if txn.Target != "" {
		fmt.Printf("Target:        %s\n", txn.Target)
	}
	fmt.Printf("Amount:        %s\n", txn.Amount)
	if txn.Data != "" {
		fmt.Printf("Data:          %s\n", txn.Data)
	}
	if txn.Approver != "" {
		fmt.Printf("Approver:      %s\n", txn.Approver)
	}
	if txn.RejectionReason != "" {
		fmt.Printf("Reason:        %s\n", txn.RejectionReason)
	}
	fmt.Printf("Created:       %s\n", txn.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Execute After: %s\n", txn.ExecuteAfter.Format(time.RFC3339))
}

// getClient builds an API client from the global flags.
func getClient(c *cli.Context) *client.Client {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only errors to stderr
	}))
	return client.NewClient(c.String("server-url"), nil, logger)
}

func argID(c *cli.Context) (int64, error) {
	if c.NArg() != 1 {
		return 0, fmt.Errorf("requires exactly one argument: transaction id")
	}
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", c.Args().First(), err)
	}
	return id, nil
}
