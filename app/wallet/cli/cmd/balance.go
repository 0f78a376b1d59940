package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var account string

// balanceCmd represents the balance command
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the balance of an account or of every account.",
	Run: func(cmd *cobra.Command, args []string) {
		path := "/v1/accounts/list"
		if account != "" {
			path += "/" + account
		}

		var balances struct {
			LatestBlock string `json:"latest_block"`
			Uncommitted int    `json:"uncommitted"`
			Balances    []struct {
				Account string `json:"account"`
				Balance int64  `json:"balance"`
			} `json:"balances"`
		}
		if err := get(path, &balances); err != nil {
			log.Fatal(err)
		}

		fmt.Println("Latest Block:", balances.LatestBlock)
		fmt.Println("Uncommitted :", balances.Uncommitted)
		for _, bal := range balances.Balances {
			fmt.Printf("%-20s %d\n", bal.Account, bal.Balance)
		}
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&account, "account", "a", "", "Account to print, all when empty.")
}
