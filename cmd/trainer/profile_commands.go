package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vocabtrainer/internal/config"
	"vocabtrainer/internal/profile"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage device profiles (each has its own progress database)",
	}
	cmd.AddCommand(newProfileListCmd())
	cmd.AddCommand(newProfileAddCmd())
	cmd.AddCommand(newProfileUseCmd())
	cmd.AddCommand(newProfileRemoveCmd())
	return cmd
}

// loadRegistry opens just the profile registry, without the full app wiring.
func loadRegistry() (*config.Config, *profile.Store, *profile.Registry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	store := profile.NewStore(cfg.ProfilesPath)
	reg, err := store.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, store, reg, nil
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles on this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, reg, err := loadRegistry()
			if err != nil {
				return err
			}
			for _, p := range reg.Profiles {
				marker := " "
				if p.ID == reg.CurrentID {
					marker = "*"
				}
				fmt.Printf("%s %s  %s\n", marker, p.ID, p.Name)
			}
			return nil
		},
	}
}

func newProfileAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [name]",
		Short: "Add a profile and switch to it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, reg, err := loadRegistry()
			if err != nil {
				return err
			}
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			p := reg.Add(name)
			if err := store.Save(reg); err != nil {
				return err
			}
			fmt.Printf("created profile %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}
}

func newProfileUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Switch the active profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, reg, err := loadRegistry()
			if err != nil {
				return err
			}
			reg.SetCurrent(args[0])
			if err := store.Save(reg); err != nil {
				return err
			}
			fmt.Println("active profile:", reg.Current().Name)
			return nil
		},
	}
}

func newProfileRemoveCmd() *cobra.Command {
	var purge bool
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, reg, err := loadRegistry()
			if err != nil {
				return err
			}
			id := args[0]
			reg.Remove(id)
			if err := store.Save(reg); err != nil {
				return err
			}
			if purge {
				if err := os.Remove(profile.DBPath(cfg.DataDir, id)); err != nil && !os.IsNotExist(err) {
					return err
				}
			}
			fmt.Println("removed profile", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "also delete the profile's database file")
	return cmd
}
