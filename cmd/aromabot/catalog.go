package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"aromabot/internal/catalog"
	"aromabot/internal/config"
	"aromabot/internal/domain"
	"aromabot/internal/pricing"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and load the product catalog",
	}

	var dbPath string
	importCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Load products from a YAML or JSON seed file into the SQLite catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				cfg, err := config.Load(resolveConfigPath())
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				dbPath = cfg.Catalog.DBPath
			}

			products, err := catalog.LoadSeed(args[0])
			if err != nil {
				return err
			}
			store, err := catalog.NewSQLiteStore(config.ExpandPath(dbPath), logger)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := context.Background()
			if err := store.Upsert(ctx, products); err != nil {
				return err
			}
			total, err := store.Count(ctx)
			if err != nil {
				return err
			}
			logger.Info("catalog imported", "file", args[0], "products", len(products), "total", total, "db", dbPath)
			return nil
		},
	}
	importCmd.Flags().StringVar(&dbPath, "db", "", "SQLite catalog path (default: catalog.dbPath from config)")
	cmd.AddCommand(importCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "find [code]",
		Short: "Look up a product by code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(func(ctx context.Context, store catalog.Store) error {
				p, err := store.FindByCode(ctx, args[0])
				if err != nil {
					return err
				}
				if p == nil {
					return fmt.Errorf("product %s not found", catalog.NormalizeCode(args[0]))
				}
				printProducts([]domain.Product{*p})
				return nil
			})
		},
	})

	var limit int
	searchCmd := &cobra.Command{
		Use:   "search [terms...]",
		Short: "Search product descriptions for any of the terms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(func(ctx context.Context, store catalog.Store) error {
				products, err := store.Search(ctx, domain.SearchQuery{Terms: args, Limit: limit})
				if err != nil {
					return err
				}
				if len(products) == 0 {
					fmt.Println("no products found")
					return nil
				}
				printProducts(products)
				return nil
			})
		},
	}
	searchCmd.Flags().IntVar(&limit, "limit", catalog.DefaultLimit, "maximum number of results")
	cmd.AddCommand(searchCmd)

	return cmd
}

func withCatalog(fn func(ctx context.Context, store catalog.Store) error) error {
	cfg, logCloser, err := loadConfig()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx := context.Background()
	store, err := catalog.New(ctx, cfg.Catalog, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

func printProducts(products []domain.Product) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tCOST\tDESCRIPTION")
	for _, p := range products {
		cost := "-"
		if p.HasCost() {
			cost = pricing.FormatBRL(*p.Cost)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Code, cost, strings.TrimSpace(p.Description))
	}
	w.Flush()
}
