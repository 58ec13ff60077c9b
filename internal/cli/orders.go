package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/entity"
	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/service"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (r *runner) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the purchasing tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.ensureEnv(); err != nil {
				return err
			}
			if err := entity.AutoMigrate(r.env.DB); err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s purchasing tables migrated\n", color.New(color.FgGreen).Sprint("✓"))
			return nil
		},
	}
}

func (r *runner) listCmd() *cobra.Command {
	var params service.ListParams
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List purchase orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.scoped(); err != nil {
				return err
			}
			res := r.api.ListPurchaseOrders(cmd.Context(), r.pharmacyID, params)
			return report(r, cmd.OutOrStdout(), res, func(page *service.OrderPage) {
				out := cmd.OutOrStdout()
				if len(page.Items) == 0 {
					fmt.Fprintln(out, "No purchase orders found.")
					return
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNUMBER\tSUPPLIER\tSTATUS\tTOTAL\tLINES")
				fmt.Fprintln(w, "--\t------\t--------\t------\t-----\t-----")
				for _, po := range page.Items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
						po.ID, po.OrderNumber, po.SupplierID, po.Status, po.TotalCost.StringFixed(2), len(po.Lines))
				}
				w.Flush()
				fmt.Fprintf(out, "%d of %d\n", len(page.Items), page.Total)
			})
		},
	}
	cmd.Flags().StringVar(&params.Status, "status", "", "filter by status")
	cmd.Flags().StringVar(&params.SupplierID, "supplier", "", "filter by supplier id")
	cmd.Flags().IntVar(&params.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&params.PageSize, "page-size", 20, "page size")
	return cmd
}

func (r *runner) createCmd() *cobra.Command {
	var req service.CreateOrderRequest
	cmd := &cobra.Command{
		Use:   "create [product-id=qty[@unit-cost]]...",
		Short: "Create a DRAFT purchase order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.scoped(); err != nil {
				return err
			}
			items, err := parseItems(args)
			if err != nil {
				return err
			}
			req.Items = items
			res := r.api.CreatePurchaseOrder(cmd.Context(), r.pharmacyID, r.userID, &req)
			return report(r, cmd.OutOrStdout(), res, func(po *entity.PurchaseOrder) {
				printOrder(cmd.OutOrStdout(), po)
			})
		},
	}
	cmd.Flags().StringVar(&req.SupplierID, "supplier", "", "supplier id (required)")
	cmd.Flags().StringVar(&req.OrderDate, "date", "", "order date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "free-form notes")
	return cmd
}

func (r *runner) updateCmd() *cobra.Command {
	var supplierID, orderDate, notes string
	cmd := &cobra.Command{
		Use:   "update [order-id] [product-id=qty[@unit-cost]]...",
		Short: "Update a DRAFT order; listing items replaces all lines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.scoped(); err != nil {
				return err
			}
			var req service.UpdateOrderRequest
			if cmd.Flags().Changed("supplier") {
				req.SupplierID = &supplierID
			}
			if cmd.Flags().Changed("date") {
				req.OrderDate = &orderDate
			}
			if cmd.Flags().Changed("notes") {
				req.Notes = &notes
			}
			if len(args) > 1 {
				items, err := parseItems(args[1:])
				if err != nil {
					return err
				}
				req.Items = items
			}
			res := r.api.UpdatePurchaseOrder(cmd.Context(), args[0], r.pharmacyID, r.userID, &req)
			return report(r, cmd.OutOrStdout(), res, func(po *entity.PurchaseOrder) {
				printOrder(cmd.OutOrStdout(), po)
			})
		},
	}
	cmd.Flags().StringVar(&supplierID, "supplier", "", "new supplier id")
	cmd.Flags().StringVar(&orderDate, "date", "", "new order date YYYY-MM-DD")
	cmd.Flags().StringVar(&notes, "notes", "", "new notes")
	return cmd
}

func (r *runner) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [order-id]",
		Short: "Show a purchase order with its lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.scoped(); err != nil {
				return err
			}
			res := r.api.GetPurchaseOrder(cmd.Context(), args[0], r.pharmacyID)
			return report(r, cmd.OutOrStdout(), res, func(po *entity.PurchaseOrder) {
				printOrder(cmd.OutOrStdout(), po)
			})
		},
	}
}

func (r *runner) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [order-id] [status]",
		Short: "Set an order's status (EXPORTED, SUBMITTED, CANCELLED)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.scoped(); err != nil {
				return err
			}
			res := r.api.UpdatePurchaseOrderStatus(cmd.Context(), args[0], r.pharmacyID, r.userID, args[1])
			return report(r, cmd.OutOrStdout(), res, func(po *entity.PurchaseOrder) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s is now %s\n",
					color.New(color.FgGreen).Sprint("✓"), po.OrderNumber, statusColor(po.Status))
			})
		},
	}
}

func (r *runner) confirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm [order-id] [line-id=unit-cost]...",
		Short: "Confirm an order; lines not listed are removed as unavailable",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.scoped(); err != nil {
				return err
			}
			costs, err := parsePairs(args[1:])
			if err != nil {
				return err
			}
			items := make(map[string]service.ConfirmedItem, len(costs))
			for lineID, cost := range costs {
				items[lineID] = service.ConfirmedItem{UnitCost: cost, Available: true}
			}
			res := r.api.ConfirmPurchaseOrder(cmd.Context(), args[0], r.pharmacyID, r.userID, items)
			return report(r, cmd.OutOrStdout(), res, func(po *entity.PurchaseOrder) {
				printOrder(cmd.OutOrStdout(), po)
			})
		},
	}
}

func (r *runner) receiveCmd() *cobra.Command {
	var noInventory bool
	cmd := &cobra.Command{
		Use:   "receive [order-id] [line-id=received-qty]...",
		Short: "Record cumulative received quantities",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.scoped(); err != nil {
				return err
			}
			quantities, err := parseQuantities(args[1:])
			if err != nil {
				return err
			}
			updateInventory := !noInventory
			res := r.api.PartiallyReceiveItems(cmd.Context(), args[0], r.pharmacyID, r.userID, quantities, &updateInventory)
			return report(r, cmd.OutOrStdout(), res, func(po *entity.PurchaseOrder) {
				printOrder(cmd.OutOrStdout(), po)
			})
		},
	}
	cmd.Flags().BoolVar(&noInventory, "no-inventory", false, "do not add received stock to the catalog")
	return cmd
}

func (r *runner) receiveAllCmd() *cobra.Command {
	var noInventory bool
	cmd := &cobra.Command{
		Use:   "receive-all [order-id]",
		Short: "Mark every line as fully received",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.scoped(); err != nil {
				return err
			}
			updateInventory := !noInventory
			res := r.api.ReceiveAllItems(cmd.Context(), args[0], r.pharmacyID, r.userID, &updateInventory)
			return report(r, cmd.OutOrStdout(), res, func(po *entity.PurchaseOrder) {
				printOrder(cmd.OutOrStdout(), po)
			})
		},
	}
	cmd.Flags().BoolVar(&noInventory, "no-inventory", false, "do not add received stock to the catalog")
	return cmd
}

func (r *runner) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [order-id]",
		Short: "Delete a DRAFT or CANCELLED order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.scoped(); err != nil {
				return err
			}
			res := r.api.DeletePurchaseOrder(cmd.Context(), args[0], r.pharmacyID, r.userID)
			return report(r, cmd.OutOrStdout(), res, func(id string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s deleted %s\n", color.New(color.FgGreen).Sprint("✓"), id)
			})
		},
	}
}

// Execute 运行根命令，出错时以非零状态退出
func Execute(open Opener) {
	if err := NewRootCmd(open).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
