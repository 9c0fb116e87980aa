package main

import (
	"context"
	"fmt"
	"strings"

	"jetstream-go/jetstream/models"

	"github.com/spf13/cobra"
)

func (c *cli) eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "read and acknowledge pending events",
	}

	var limit int
	get := &cobra.Command{
		Use:   "get",
		Short: "prints the next batch of pending events without acknowledging it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), c.requestTimeout())
			defer cancel()

			batch, err := client.GetEvents(ctx, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), batch)
		},
	}
	get.Flags().IntVar(&limit, "limit", 100, `events per batch, at most 500`)

	ack := &cobra.Command{
		Use:   "ack BATCH_ID",
		Short: "acknowledges a batch so it is not delivered again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), c.requestTimeout())
			defer cancel()

			if err := client.RemoveEvents(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "acknowledged %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(get, ack)
	return cmd
}

func (c *cli) commandCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "command",
		Short: "queue device commands",
	}

	var duration int
	lock := &cobra.Command{
		Use:   "lock DEVICE",
		Short: "locks the device door",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCommand(cmd, func(ctx context.Context, client deviceCommander) (*models.CommandResponse, error) {
				return client.LockDoor(ctx, args[0], duration)
			})
		},
	}
	lock.Flags().IntVar(&duration, "duration", 0, `seconds, 0 uses the device default`)

	var unlockDuration int
	unlock := &cobra.Command{
		Use:   "unlock DEVICE",
		Short: "unlocks the device door",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCommand(cmd, func(ctx context.Context, client deviceCommander) (*models.CommandResponse, error) {
				return client.UnlockDoor(ctx, args[0], unlockDuration)
			})
		},
	}
	unlock.Flags().IntVar(&unlockDuration, "duration", 0, `seconds, 0 uses the device default`)

	reboot := &cobra.Command{
		Use:   "reboot DEVICE",
		Short: "reboots the device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCommand(cmd, func(ctx context.Context, client deviceCommander) (*models.CommandResponse, error) {
				return client.Reboot(ctx, args[0])
			})
		},
	}

	var set []string
	configCmd := &cobra.Command{
		Use:   "config DEVICE [PARAMETER...]",
		Short: "reads configuration values, or writes them with --set name=value",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), c.requestTimeout())
			defer cancel()

			if len(set) == 0 {
				values, err := client.GetConfigurationValues(ctx, args[0], args[1:])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), values.Map())
			}

			values, err := parseAssignments(set)
			if err != nil {
				return err
			}
			resp, err := client.SetConfigurationValues(ctx, args[0], values)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	configCmd.Flags().StringArrayVar(&set, "set", nil, `name=value to write, repeatable`)

	cmd.AddCommand(lock, unlock, reboot, configCmd)
	return cmd
}

// deviceCommander is the subset of *jetstream.Client used by door and reboot commands.
type deviceCommander interface {
	LockDoor(ctx context.Context, deviceName string, seconds int) (*models.CommandResponse, error)
	UnlockDoor(ctx context.Context, deviceName string, seconds int) (*models.CommandResponse, error)
	Reboot(ctx context.Context, deviceName string) (*models.CommandResponse, error)
}

func (c *cli) runCommand(cmd *cobra.Command, send func(context.Context, deviceCommander) (*models.CommandResponse, error)) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), c.requestTimeout())
	defer cancel()

	resp, err := send(ctx, client)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}

func parseAssignments(pairs []string) ([]models.ConfigurationValue, error) {
	values := make([]models.ConfigurationValue, 0, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q, expected name=value", p)
		}
		values = append(values, models.ConfigurationValue{Name: name, Value: value})
	}
	return values, nil
}
