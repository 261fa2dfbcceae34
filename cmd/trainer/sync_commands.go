package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"vocabtrainer/internal/settings"
	"vocabtrainer/internal/sync"
	"vocabtrainer/internal/synccodec"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push, pull and configure cross-device sync",
	}
	cmd.AddCommand(newSyncSetupCmd())
	cmd.AddCommand(newSyncPushCmd())
	cmd.AddCommand(newSyncPullCmd())
	cmd.AddCommand(newSyncStatusCmd())
	return cmd
}

func newSyncSetupCmd() *cobra.Command {
	var endpoint, passphrase string
	var auto bool
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Configure the sync endpoint and passphrase for this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase != "" && len(passphrase) < synccodec.MinPassphraseLen {
				return synccodec.ErrPassphraseTooShort
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			values := map[string]any{
				settings.KeySyncAuto: auto,
			}
			if endpoint != "" {
				values[settings.KeySyncEndpoint] = sync.SanitizeEndpoint(endpoint)
			}
			if passphrase != "" {
				values[settings.KeySyncKey] = passphrase
			}
			if err := a.settings.SetMany(context.Background(), values); err != nil {
				return err
			}
			fmt.Println("sync configured")
			return nil
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "sync server base URL")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "sync passphrase (16+ characters, same on every device)")
	cmd.Flags().BoolVar(&auto, "auto", true, "push automatically after learning")
	return cmd
}

func newSyncPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Encrypt and upload the local state now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			resp, err := a.manager.PushNow(context.Background(), "manual")
			if err != nil {
				return describeSyncError(err)
			}
			if resp.Stored {
				fmt.Println("pushed:", resp.UpdatedAt)
			} else {
				fmt.Println("server kept a newer copy:", resp.UpdatedAt)
			}
			return nil
		},
	}
}

func newSyncPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Download the remote state and merge it into local data",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.manager.PullAndRestore(context.Background()); err != nil {
				return describeSyncError(err)
			}
			fmt.Println("restored and merged")
			return nil
		},
	}
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync configuration and the last result",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			cfg, err := a.session.Settings(context.Background())
			if err != nil {
				return err
			}

			endpoint := cfg.String(settings.KeySyncEndpoint, "")
			if endpoint == "" {
				fmt.Println("not configured")
				return nil
			}
			fmt.Println("endpoint:", endpoint)
			fmt.Println("auto:", cfg.Bool(settings.KeySyncAuto, true))
			if at := cfg.String(settings.KeySyncLastAt, ""); at != "" {
				fmt.Println("last sync:", at)
			}
			if lastErr := cfg.String(settings.KeySyncLastError, ""); lastErr != "" {
				fmt.Println("last error:", lastErr)
			}
			return nil
		},
	}
}

// describeSyncError maps the sync error taxonomy to user-facing messages:
// a passphrase problem must read differently from a connection problem.
func describeSyncError(err error) error {
	switch {
	case errors.Is(err, sync.ErrNotConfigured):
		return fmt.Errorf("sync is not configured, run `trainer sync setup` first")
	case errors.Is(err, sync.ErrNothingToRestore):
		return fmt.Errorf("no data on the server yet for this passphrase")
	case errors.Is(err, synccodec.ErrDecrypt):
		return fmt.Errorf("decryption failed, check that the passphrase matches the one used to push")
	case errors.Is(err, synccodec.ErrMalformedPayload):
		return fmt.Errorf("the stored payload is corrupted: %w", err)
	case errors.Is(err, sync.ErrRemote):
		return fmt.Errorf("could not reach the sync server: %w", err)
	default:
		return err
	}
}
