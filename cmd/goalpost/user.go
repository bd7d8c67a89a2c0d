package main

import (
	"context"
	"fmt"

	"github.com/goalpost-hq/goalpost/internal/types"
	"github.com/goalpost-hq/goalpost/internal/validation"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

func init() {
	userCmd.PersistentFlags().StringVar(&dbPathOverride, "db", "",
		"Database path (overrides config and GOALPOST_DB_PATH)")
	userCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output in JSON format")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
}

var (
	userEmail      string
	userRole       string
	userDepartment string
)

var userAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

func init() {
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "Email address (required)")
	userAddCmd.Flags().StringVar(&userRole, "role", "employee",
		"Role: employee, supervisor, admin")
	userAddCmd.Flags().StringVar(&userDepartment, "department", "",
		"Department id")
	userAddCmd.MarkFlagRequired("email")
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	nu := types.NewUser{
		Name:         args[0],
		Email:        userEmail,
		Role:         types.Role(userRole),
		DepartmentID: userDepartment,
	}
	if errs := validation.ValidateNewUser(nu); len(errs) > 0 {
		return fmt.Errorf("invalid user: %s %s", errs[0].Field, errs[0].Message)
	}

	db, err := resolveStore()
	if err != nil {
		return err
	}
	defer db.Close()

	u, err := db.CreateUser(context.Background(), nu)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), u)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s user %q (%s)\n", u.Role, u.Name, u.ID)
	return nil
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE:  runUserList,
}

func runUserList(cmd *cobra.Command, args []string) error {
	db, err := resolveStore()
	if err != nil {
		return err
	}
	defer db.Close()

	users, err := db.ListUsers(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), types.UserList{Users: users})
	}

	tw := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tDEPARTMENT")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.Name, u.Email, u.Role, u.DepartmentID)
	}
	return tw.Flush()
}
