package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jbetancur/kubeimport/internal/pkg/credentials"
	"github.com/spf13/cobra"
)

func newCmdCredentials() *cobra.Command {
	cmd := &cobra.Command{Use: "credentials", Short: "Manage stored AWS credentials", RunE: func(cmd *cobra.Command, args []string) error { return cmd.Help() }}
	cmd.AddCommand(newCmdCredentialsSet(), newCmdCredentialsDelete(), newCmdCredentialsList())
	return cmd
}

func newCmdCredentialsSet() *cobra.Command {
	cmd := &cobra.Command{Use: "set <region>", Short: "Store credentials for a region", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		accessKeyID, _ := cmd.Flags().GetString("access-key-id")
		secretKey, _ := cmd.Flags().GetString("secret-key")
		if accessKeyID == "" {
			accessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
		}
		if secretKey == "" {
			secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
		}
		if accessKeyID == "" || secretKey == "" {
			return errors.New("access key id and secret key are required (--access-key-id, --secret-key or AWS_* env)")
		}

		store, err := fromContext(cmd.Context()).credentialStore()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		if err := store.Save(ctx, args[0], credentials.Entry{AccessKeyID: accessKeyID, SecretKey: secretKey}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored credentials for %s\n", args[0])
		return nil
	}}

	cmd.Flags().String("access-key-id", "", "AWS access key id (env AWS_ACCESS_KEY_ID)")
	cmd.Flags().String("secret-key", "", "AWS secret access key (env AWS_SECRET_ACCESS_KEY)")
	return cmd
}

func newCmdCredentialsDelete() *cobra.Command {
	return &cobra.Command{Use: "delete <region>", Short: "Delete credentials of a region", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		store, err := fromContext(cmd.Context()).credentialStore()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		if err := store.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted credentials for %s\n", args[0])
		return nil
	}}
}

func newCmdCredentialsList() *cobra.Command {
	return &cobra.Command{Use: "list", Short: "List regions with stored credentials", RunE: func(cmd *cobra.Command, args []string) error {
		store, err := fromContext(cmd.Context()).credentialStore()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		regions, err := store.Regions(ctx)
		if err != nil {
			return err
		}
		for _, region := range regions {
			fmt.Fprintln(cmd.OutOrStdout(), region)
		}
		return nil
	}}
}
