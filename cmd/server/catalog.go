package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"autobill/backend/internal/domain"
	"autobill/backend/internal/store"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the catalog table, drop duplicate names and install the unique index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			catalog := newCatalog(cfg)
			defer catalog.Close()

			if err := catalog.Init(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog ready (%s)\n", cfg.CatalogDriver)
			return nil
		},
	}
}

func newCatalogCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and edit the product catalog",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every product, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCatalog(func(catalog store.Catalog) error {
				products, err := catalog.LoadAll(cmd.Context())
				if err != nil {
					return err
				}
				return printProducts(cmd.OutOrStdout(), products)
			})
		},
	}

	var limit int
	search := &cobra.Command{
		Use:   "search <text>",
		Short: "Find products whose name contains text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(func(catalog store.Catalog) error {
				products, err := catalog.Search(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				return printProducts(cmd.OutOrStdout(), products)
			})
		},
	}
	search.Flags().IntVar(&limit, "limit", store.DefaultSearchLimit, "maximum number of results")

	var brand string
	var price float64
	add := &cobra.Command{
		Use:   "add <item name>",
		Short: "Add a product unless one with the same name already exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(func(catalog store.Catalog) error {
				res, err := catalog.AddIfMissing(cmd.Context(), domain.ProductInput{
					ItemName:     args[0],
					VehicleBrand: brand,
					ListPrice:    price,
				})
				if err != nil {
					return err
				}
				verb := "exists"
				if res.WasCreated {
					verb = "created"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", verb, res.Product.ItemName, res.Product.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&brand, "brand", "", "vehicle brand")
	add.Flags().Float64Var(&price, "price", 0, "list price")

	root.AddCommand(list, search, add)
	return root
}

func withCatalog(fn func(store.Catalog) error) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	catalog := newCatalog(cfg)
	defer catalog.Close()
	return fn(catalog)
}

func printProducts(w io.Writer, products []domain.Product) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tBRAND\tLIST PRICE\tADDED")
	for _, p := range products {
		brand := p.VehicleBrand
		if brand == "" {
			brand = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ItemName, brand, strconv.FormatFloat(p.ListPrice, 'f', 2, 64), p.CreatedAt)
	}
	return tw.Flush()
}
