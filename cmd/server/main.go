package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		log.Printf("❌ %v", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "floorshop",
		Short: "Back-end de prise de commande de la boutique",
		Long: `Prise de commande de la boutique en ligne.

Le panier soumis par le front devient une commande persistée (client, en-tête,
lignes, journal) en une transaction, puis les effets best-effort sont lancés :
mail de confirmation, session de paiement, audit, index CRM, événement DWH, archive.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(serveCmd(), migrateCmd())
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Lance le serveur HTTP de checkout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Crée ou met à jour les tables commandes / clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate()
		},
	}
}
