package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"cartera-reconciler/cmd/cartera/config"
	"cartera-reconciler/internal/notifier"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	webhookURL string
	alertTo    string
)

// alertCmd represents the alert command
var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Send the expiring-portfolio alert",
	Long: `Alert collects the non-void policies whose emission date falls inside
the notification window (25 to 30 days out by default) and posts one
message to the configured webhook for delivery.

Examples:
  cartera alert --webhook-url http://localhost:3000/send-alert --to whatsapp:+573242139020
  cartera alert --webhook-url http://localhost:3000/send-alert --to whatsapp:+573242139020 \
    --alert-window-min 20 --alert-window-max 35`,
	PreRunE: validateAlertFlags,
	RunE:    runAlert,
}

func init() {
	rootCmd.AddCommand(alertCmd)

	alertCmd.Flags().StringVar(&webhookURL, "webhook-url", "", "alert relay endpoint (required)")
	alertCmd.Flags().StringVar(&alertTo, "to", "", "destination address, e.g. whatsapp:+57... (required)")
	alertCmd.Flags().Int("alert-window-min", 25, "window lower bound in days")
	alertCmd.Flags().Int("alert-window-max", 30, "window upper bound in days")

	alertCmd.MarkFlagRequired("webhook-url")
	alertCmd.MarkFlagRequired("to")

	viper.BindPFlag("webhook-url", alertCmd.Flags().Lookup("webhook-url"))
	viper.BindPFlag("to", alertCmd.Flags().Lookup("to"))
	viper.BindPFlag("alert-window-min", alertCmd.Flags().Lookup("alert-window-min"))
	viper.BindPFlag("alert-window-max", alertCmd.Flags().Lookup("alert-window-max"))
}

func validateAlertFlags(cmd *cobra.Command, args []string) error {
	webhookURL = viper.GetString("webhook-url")
	alertTo = viper.GetString("to")

	if webhookURL == "" {
		return fmt.Errorf("webhook-url is required")
	}
	if alertTo == "" {
		return fmt.Errorf("to is required")
	}
	if viper.GetInt("alert-window-min") > viper.GetInt("alert-window-max") {
		return fmt.Errorf("alert-window-min cannot exceed alert-window-max")
	}
	return nil
}

func runAlert(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	handler := NewCLIErrorHandler()

	rt, err := config.BuildRuntime(ctx)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer rt.Close()

	records, err := rt.Service.ListAll(ctx)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	n := notifier.New(notifier.Config{WebhookURL: webhookURL, To: alertTo}, rt.Log.WithComponent("notifier"))
	count, err := n.SendAlert(ctx, records, time.Now(), rt.Service.Thresholds())
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	if count == 0 {
		fmt.Println("No policies in the alert window; nothing sent.")
		return nil
	}
	fmt.Printf("Alert sent for %d policies.\n", count)
	return nil
}
