package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"maintline/internal/domain"
	"maintline/internal/engine"
	"maintline/internal/repo"
)

func workOrderCmd() *cobra.Command {
	wo := &cobra.Command{Use: "wo", Aliases: []string{"work-order"}, Short: "Manage work orders"}
	wo.AddCommand(woCreateCmd())
	wo.AddCommand(woListCmd())
	wo.AddCommand(woShowCmd())
	wo.AddCommand(woStatusCmd())
	wo.AddCommand(woAssignCmd())
	wo.AddCommand(woDeleteCmd())
	wo.AddCommand(woHistoryCmd())
	return wo
}

func woCreateCmd() *cobra.Command {
	var in engine.CreateWorkOrderInput
	var priority string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a work order",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Priority = domain.Priority(priority)
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor domain.Actor) error {
				wo, err := e.CreateWorkOrder(ctx, actor, in)
				if err != nil {
					return err
				}
				return printWorkOrder(wo)
			})
		},
	}
	cmd.Flags().StringVar(&in.Asset, "asset", "", "asset name")
	cmd.Flags().StringVar(&in.AssetID, "asset-id", "", "catalog asset id")
	cmd.Flags().StringVar(&in.Description, "description", "", "what needs doing")
	cmd.Flags().StringVar(&priority, "priority", "", "Low, Medium or High (default Medium)")
	return cmd
}

func woListCmd() *cobra.Command {
	var status, priority string
	var f repo.WorkOrderFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Status = domain.Status(status)
			f.Priority = domain.Priority(priority)
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor domain.Actor) error {
				list, err := e.ListWorkOrders(ctx, actor, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(list)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Asset", "Priority", "Status", "Assigned To", "Updated"})
				for _, wo := range list {
					assignee := ""
					if wo.AssignedTo != nil {
						assignee = wo.AssignedTo.Name
					}
					tw.AppendRow(table.Row{wo.ID, wo.Asset, wo.Priority, wo.Status, assignee, wo.UpdatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&priority, "priority", "", "priority filter")
	cmd.Flags().StringVar(&f.AssignedTo, "assigned-to", "", "assignee user id filter")
	cmd.Flags().StringVar(&f.AssetID, "asset-id", "", "catalog asset filter")
	return cmd
}

func woShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a work order with its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor domain.Actor) error {
				wo, err := e.GetWorkOrder(ctx, actor, args[0])
				if err != nil {
					return err
				}
				return printWorkOrder(wo)
			})
		},
	}
}

func woStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change status (Pending, In Progress, Completed)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor domain.Actor) error {
				wo, err := e.RequestStatusChange(ctx, actor, args[0], args[1])
				if err != nil {
					return err
				}
				return printWorkOrder(wo)
			})
		},
	}
}

func woAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <id> <technician-id>",
		Short: "Assign a technician",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor domain.Actor) error {
				wo, err := e.AssignTechnician(ctx, actor, args[0], args[1])
				if err != nil {
					return err
				}
				return printWorkOrder(wo)
			})
		},
	}
}

func woDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a work order and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor domain.Actor) error {
				if err := e.DeleteWorkOrder(ctx, actor, args[0]); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"deleted": args[0]})
				}
				fmt.Printf("Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func woHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show the history of a work order, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor domain.Actor) error {
				items, err := e.Timeline(ctx, actor, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "Timestamp", "Action", "Details", "By"})
				for _, it := range items {
					by := it.ActorName
					if by == "" {
						by = it.ActorID
					}
					tw.AppendRow(table.Row{it.Seq, it.Timestamp, it.Action, it.Details, by})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func printWorkOrder(wo domain.WorkOrder) error {
	if viper.GetBool("json") {
		return printJSON(wo)
	}
	assignee := "unassigned"
	if wo.AssignedTo != nil {
		assignee = fmt.Sprintf("%s (%s)", wo.AssignedTo.Name, wo.AssignedTo.ID)
	}
	fmt.Printf("Work order %s\n", wo.ID)
	fmt.Printf("  Asset:       %s\n", wo.Asset)
	fmt.Printf("  Description: %s\n", wo.Description)
	fmt.Printf("  Priority:    %s\n", wo.Priority)
	fmt.Printf("  Status:      %s\n", wo.Status)
	fmt.Printf("  Assigned to: %s\n", assignee)
	if len(wo.History) > 0 {
		fmt.Println("  History:")
		for _, h := range wo.History {
			fmt.Printf("    %s  %s", h.Timestamp, h.Action)
			if h.Details != "" {
				fmt.Printf(" (%s)", h.Details)
			}
			fmt.Println()
		}
	}
	return nil
}
