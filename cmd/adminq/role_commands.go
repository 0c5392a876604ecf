package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/gsdc-platform/adminq/service/queue"
	"github.com/urfave/cli/v2"
)

// Role commands talk to the database directly rather than the HTTP API.
// Granting the first ADMIN has to happen before the queue can authorize
// anything, so these exist for bootstrap and operational repair.
func roleCommands() *cli.Command {
	return &cli.Command{
		Name:  "role",
		Usage: "Role registry commands (direct database access)",
		Subcommands: []*cli.Command{
			grantRoleCommand(),
			revokeRoleCommand(),
			listRolesCommand(),
		},
	}
}

func grantRoleCommand() *cli.Command {
	return &cli.Command{
		Name:      "grant",
		Usage:     "Grant a role to an address",
		ArgsUsage: "<role> <address>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("requires two arguments: role and address")
			}

			role, err := queue.ParseRole(c.Args().Get(0))
			if err != nil {
				return err
			}
			address := c.Args().Get(1)

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			if err := store.GrantRole(context.Background(), role, address); err != nil {
				return fmt.Errorf("failed to grant role: %w", err)
			}

			fmt.Printf("✓ Granted %s to %s\n", role, address)
			return nil
		},
	}
}

func revokeRoleCommand() *cli.Command {
	return &cli.Command{
		Name:      "revoke",
		Usage:     "Revoke a role from an address",
		ArgsUsage: "<role> <address>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("requires two arguments: role and address")
			}

			role, err := queue.ParseRole(c.Args().Get(0))
			if err != nil {
				return err
			}
			address := c.Args().Get(1)

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			if err := store.RevokeRole(context.Background(), role, address); err != nil {
				return fmt.Errorf("failed to revoke role: %w", err)
			}

			fmt.Printf("✓ Revoked %s from %s\n", role, address)
			return nil
		},
	}
}

func listRolesCommand() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List roles held by an address, or holders of a role",
		Aliases:   []string{"ls"},
		ArgsUsage: "<role_or_address>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: a role name or an address")
			}

			arg := c.Args().First()
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			// A role name lists its holders; anything else is treated
			// as an address and lists its roles.
			if role, err := queue.ParseRole(arg); err == nil {
				holders, err := store.ListRoleHolders(context.Background(), role)
				if err != nil {
					return fmt.Errorf("failed to list role holders: %w", err)
				}

				if c.Bool("json") {
					return outputJSON(holders)
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ROLE\tADDRESS")
				for _, addr := range holders {
					fmt.Fprintf(w, "%s\t%s\n", role, addr)
				}
				w.Flush()
				fmt.Fprintf(os.Stderr, "\nTotal: %d holders\n", len(holders))
				return nil
			}

			roles, err := store.ListRoles(context.Background(), arg)
			if err != nil {
				return fmt.Errorf("failed to list roles: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(roles)
			}

			for _, role := range roles {
				fmt.Println(role)
			}
			fmt.Fprintf(os.Stderr, "\nTotal: %d roles\n", len(roles))
			return nil
		},
	}
}
