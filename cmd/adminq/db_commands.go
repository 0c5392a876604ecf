package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gsdc-platform/adminq/service/db"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the database schema",
		Action: func(c *cli.Context) error {
			pool, closer, err := getPool(c)
			if err != nil {
				return err
			}
			defer closer()

			if err := db.Migrate(context.Background(), pool); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}

			fmt.Println("schema applied")
			return nil
		},
	}
}

// Helper function to connect to database
func getPool(c *cli.Context) (*pgxpool.Pool, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, func() { pool.Close() }, nil
}

func getStore(c *cli.Context) (*db.Store, func(), error) {
	pool, closer, err := getPool(c)
	if err != nil {
		return nil, nil, err
	}
	return db.NewStore(pool), closer, nil
}

// Helper function to output JSON
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
