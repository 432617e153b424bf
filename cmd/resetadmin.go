package cmd

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vibeboard/vibeboard/config"
	"github.com/vibeboard/vibeboard/store"
)

var resetAdminCmdFlags struct {
	Username string
	Password string
}

var resetAdminCmd = &cobra.Command{
	Use:   "reset-admin",
	Short: "Rewrite the stored admin credential pair",
	Long: `Rewrite the admin credentials stored in the document. The pair is compared
verbatim against the admin_username/admin_password headers on every admin
request, so this is the only way to change it after the first start.`,
	Example: `vibeboard reset-admin --username admin --password s3cret`,
	Run:     resetAdmin,
}

func init() {
	resetAdminCmd.Flags().StringVar(&resetAdminCmdFlags.Username, "username", "", "New admin username")
	resetAdminCmd.Flags().StringVar(&resetAdminCmdFlags.Password, "password", "", "New admin password")
	_ = resetAdminCmd.MarkFlagRequired("username")
	_ = resetAdminCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(resetAdminCmd)
}

func resetAdmin(_ *cobra.Command, _ []string) {
	cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	setLogLevel(rootCmdPersistentFlags.LogLevel)

	st, err := store.NewFileStore(cfg.DocumentPath(), store.AdminCredentials{
		Username: cfg.Admin.Username,
		Password: cfg.Admin.Password,
	})
	if err != nil {
		log.Fatalf("failed to open document store: %v", err)
	}

	err = st.Update(context.Background(), func(doc *store.Document) error {
		doc.AdminCredentials = store.AdminCredentials{
			Username: resetAdminCmdFlags.Username,
			Password: resetAdminCmdFlags.Password,
		}
		return nil
	})
	if err != nil {
		log.Fatalf("failed to update admin credentials: %v", err)
	}
	log.Info("admin credentials updated", "username", resetAdminCmdFlags.Username)
}
