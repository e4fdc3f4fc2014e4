package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"exambank/internal/catalog"
)

var (
	plantListName string
)

var plantCmd = &cobra.Command{
	Use:   "plant",
	Short: "Manage plants",
}

var plantAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a plant",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc, cleanup := mustOpenService()
		defer cleanup()
		printResponse(svc.AddPlant(newContext(), catalog.Plant{PlantName: args[0]}))
	},
}

var plantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List plants",
	Run: func(cmd *cobra.Command, args []string) {
		svc, cleanup := mustOpenService()
		defer cleanup()

		var filter catalog.PlantFilter
		if plantListName != "" {
			filter.Name = &plantListName
		}
		printResponse(svc.ListPlants(newContext(), filter))
	},
}

var plantShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one plant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}
		svc, cleanup := mustOpenService()
		defer cleanup()
		printResponse(svc.GetPlant(newContext(), id))
		return nil
	},
}

var plantDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a plant and its exams",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}
		svc, cleanup := mustOpenService()
		defer cleanup()
		printResponse(svc.DeletePlant(newContext(), id))
		return nil
	},
}

func init() {
	plantListCmd.Flags().StringVar(&plantListName, "name", "", "Filter by exact plant name")
	plantCmd.AddCommand(plantAddCmd, plantListCmd, plantShowCmd, plantDeleteCmd)
	rootCmd.AddCommand(plantCmd)
}
