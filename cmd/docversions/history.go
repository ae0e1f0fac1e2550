package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nainya/docversions/internal/config"
	"github.com/nainya/docversions/internal/logger"
	"github.com/nainya/docversions/pkg/version"
)

func newHistoryCmd(load func() (*config.Config, error)) *cobra.Command {
	var service, id string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the version history of one document",
		Long:  `Opens the badger store named in the config and prints the version history of one document as JSON. The store must not be held by a running server.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Storage.Adapter != config.AdapterBadger {
				return fmt.Errorf("history needs the %s storage adapter, config uses %s", config.AdapterBadger, cfg.Storage.Adapter)
			}

			rt, err := buildApp(cfg, logger.Nop(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			h, err := version.GetVersion(cmd.Context(), rt.app, service, id)
			if err != nil {
				return err
			}
			if h == nil {
				return fmt.Errorf("no versions for %s on %s", id, service)
			}

			out, err := json.MarshalIndent(h, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&service, "service", "s", "", "tracked service name")
	cmd.Flags().StringVar(&id, "id", "", "document id")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
