package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/custody-api/internal/application/provisioning"
	"github.com/jhoicas/custody-api/internal/infrastructure/postgres"
)

func newBootstrapCmd() *cobra.Command {
	var (
		name     string
		email    string
		password string
		grant    int64
	)
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Crea la tesorería y el SUPERADMIN raíz, con emisión inicial opcional",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return errors.New("--email y --password son obligatorios")
			}
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.done()

			res, err := rt.svc.Bootstrap(cmd.Context(), provisioning.BootstrapInput{
				TreasuryEmail: rt.cfg.Ledger.TreasuryEmail,
				SuperAdmin:    provisioning.NewUserSpec{Name: name, Email: email, Password: password},
				Grant:         grant,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tesorería creada: %t\n", res.TreasuryCreated)
			fmt.Fprintf(out, "superadmin: %s (creado: %t)\n", res.SuperAdminID, res.RootCreated)
			if res.GrantTxID != "" {
				fmt.Fprintf(out, "emisión inicial: %s (%d monedas)\n", res.GrantTxID, grant)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Root", "nombre del SUPERADMIN")
	cmd.Flags().StringVar(&email, "email", "", "email del SUPERADMIN")
	cmd.Flags().StringVar(&password, "password", "", "password del SUPERADMIN (mínimo 8 caracteres)")
	cmd.Flags().Int64Var(&grant, "grant", 0, "monedas a emitir desde tesorería al SUPERADMIN")
	return cmd
}

func newMintCmd() *cobra.Command {
	var (
		to     string
		amount int64
		reason string
	)
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Emite monedas desde la tesorería a un usuario",
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" || amount <= 0 {
				return errors.New("--to y --amount (> 0) son obligatorios")
			}
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.done()

			txID, err := rt.svc.Mint(cmd.Context(), to, amount, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "asiento %s\n", txID)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "ID del usuario destinatario")
	cmd.Flags().Int64Var(&amount, "amount", 0, "monedas a emitir")
	cmd.Flags().StringVar(&reason, "reason", "emisión manual", "motivo registrado en el asiento")
	return cmd
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [user-id...]",
		Short: "Compara saldo almacenado contra el log de transacciones (sin argumentos: todos)",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.done()

			ids := args
			if len(ids) == 0 {
				ids, err = postgres.ListUserIDs(cmd.Context(), rt.repo)
				if err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			inconsistent := 0
			for _, id := range ids {
				report, err := rt.svc.Reconcile(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("conciliar %s: %w", id, err)
				}
				status := "ok"
				if !report.Consistent {
					status = "INCONSISTENTE"
					inconsistent++
				}
				fmt.Fprintf(out, "%s\talmacenado=%d\tderivado=%d\t%s\n", id, report.Stored, report.Derived, status)
			}
			if inconsistent > 0 {
				return fmt.Errorf("%d cuentas inconsistentes", inconsistent)
			}
			return nil
		},
	}
}
