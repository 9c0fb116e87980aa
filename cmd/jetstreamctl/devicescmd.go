package main

import (
	"context"
	"fmt"
	"os"

	"jetstream-go/internal/export"
	"jetstream-go/jetstream/models"

	"github.com/spf13/cobra"
)

func (c *cli) devicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "list, inspect, register and export logical devices",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "lists every device of the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), c.requestTimeout())
			defer cancel()

			devices, err := client.GetDevices(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), devices)
		},
	}

	get := &cobra.Command{
		Use:   "get NAME",
		Short: "shows one device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), c.requestTimeout())
			defer cancel()

			device, err := client.GetDevice(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), device)
		},
	}

	var addReq models.AddDeviceRequest
	add := &cobra.Command{
		Use:   "add",
		Short: "registers a logical device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), c.requestTimeout())
			defer cancel()

			device, err := client.AddDevice(ctx, addReq)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), device)
		},
	}
	add.Flags().StringVar(&addReq.DeviceName, "name", "", `logical device name`)
	add.Flags().StringVar(&addReq.SerialNumber, "serial", "", `hardware serial number`)
	add.Flags().StringVar(&addReq.DeviceDefinition, "definition", "", `device definition name`)
	add.Flags().StringVar(&addReq.Region, "region", "", `region, e.g. US`)
	add.Flags().StringVar(&addReq.PolicyName, "policy", "", `policy applied to the device`)

	remove := &cobra.Command{
		Use:   "remove NAME",
		Short: "removes a logical device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), c.requestTimeout())
			defer cancel()

			if err := client.RemoveDevice(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}

	var output string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "writes every device to an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), c.requestTimeout())
			defer cancel()

			devices, err := client.GetDevices(ctx)
			if err != nil {
				return err
			}
			data, err := export.DevicesWorkbook(devices)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d devices to %s\n", len(devices), output)
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "devices.xlsx", `path of the workbook to write`)

	cmd.AddCommand(list, get, add, remove, exportCmd)
	return cmd
}

func (c *cli) policiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policies",
		Short: "inspect policies",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "lists every policy of the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), c.requestTimeout())
			defer cancel()

			policies, err := client.GetPolicies(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), policies)
		},
	})
	return cmd
}

func (c *cli) aliasesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aliases",
		Short: "inspect device aliases",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list [DEVICE]",
		Short: "lists aliases, optionally of one device",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), c.requestTimeout())
			defer cancel()

			device := ""
			if len(args) == 1 {
				device = args[0]
			}
			aliases, err := client.GetAliases(ctx, device)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), aliases)
		},
	})
	return cmd
}
