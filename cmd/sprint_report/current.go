package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sprintreport/api"
	"sprintreport/services"
)

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "現在のスプリント名を表示する",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		svc := services.NewSprintService(cfg, api.NewDevOpsClient(cfg))
		name, ok := svc.CurrentSprintName(ctx)
		if !ok {
			return errors.New("現在のスプリントが見つかりません")
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	},
}
