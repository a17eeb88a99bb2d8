package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sespe/emendas-bi/internal/auth"
	"github.com/sespe/emendas-bi/internal/logger"
)

var credentialsPath string

var (
	okMsg   = color.New(color.FgGreen).FprintfFunc()
	failMsg = color.New(color.FgRed).FprintfFunc()
)

var rootCmd = &cobra.Command{
	Use:           "users",
	Short:         "Manage dashboard credentials",
	Long:          "Create, list and delete the username/password entries the dashboard authenticates against.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&credentialsPath, "credentials", "credentials.json", "path to the credentials JSON file")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
}

func openStore() *auth.Store {
	// The CLI edits the JSON file directly; the secrets source is
	// read-only and managed by the hosting platform.
	return auth.NewStore(credentialsPath, "", logger.New())
}

var (
	createUsername string
	createPassword string
	createName     string
	createRole     string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if createUsername == "" || createPassword == "" || createName == "" {
			return fmt.Errorf("--username, --password and --name are all required")
		}

		store := openStore()
		created, err := store.Add(createUsername, createPassword, createName, createRole)
		if err != nil {
			return fmt.Errorf("creating user: %w", err)
		}
		if !created {
			failMsg(os.Stderr, "User %q already exists\n", createUsername)
			return fmt.Errorf("user %q already exists", createUsername)
		}

		okMsg(cmd.OutOrStdout(), "User %q created\n", createUsername)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List users (never prints password hashes)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store := openStore()
		users := store.List()
		if len(users) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No users found.")
			return nil
		}

		for _, u := range users {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n  name: %s\n  role: %s\n", u.Username, u.Name, u.Role)
		}
		return nil
	},
}

var (
	deleteUsername string
	deleteYes      bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if deleteUsername == "" {
			return fmt.Errorf("--username is required")
		}

		if !deleteYes {
			fmt.Fprintf(cmd.OutOrStdout(), "Delete user %q? (y/n): ", deleteUsername)
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if strings.ToLower(strings.TrimSpace(answer)) != "y" {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
		}

		store := openStore()
		removed, err := store.Remove(deleteUsername)
		if err != nil {
			return fmt.Errorf("deleting user: %w", err)
		}
		if !removed {
			failMsg(os.Stderr, "User %q not found\n", deleteUsername)
			return fmt.Errorf("user %q not found", deleteUsername)
		}

		okMsg(cmd.OutOrStdout(), "User %q deleted\n", deleteUsername)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVarP(&createUsername, "username", "u", "", "login username")
	createCmd.Flags().StringVarP(&createPassword, "password", "p", "", "password (hashed before storage)")
	createCmd.Flags().StringVarP(&createName, "name", "n", "", "display name")
	createCmd.Flags().StringVarP(&createRole, "role", "r", "user", "role (admin or user)")

	deleteCmd.Flags().StringVarP(&deleteUsername, "username", "u", "", "login username")
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "skip the confirmation prompt")
}
