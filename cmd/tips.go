package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"loro-platform/realtime"
	"loro-platform/services"
)

var tipsCmd = &cobra.Command{
	Use:   "tips",
	Short: "Send today's sales tip to every active user now",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := bootstrap()
		if err != nil {
			return err
		}
		// no sockets in a one-shot run; clients pick the notifications up on next poll
		notifications := services.NewNotificationService(db, realtime.NopPublisher{})
		tips := services.NewSalesTipBroadcaster(db, notifications, cfg.SalesTipsBatchSize, cfg.SalesTipsBatchDelay)

		res, err := tips.Run(cmd.Context())
		if err != nil {
			return err
		}
		log.Printf("✅ [TIPS] sent %d tip(s) in %d batch(es)", res.Sent, res.Batches)
		return nil
	},
}
