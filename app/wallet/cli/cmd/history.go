package cmd

import (
	"fmt"
	"log"

	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history <account>",
	Short: "Print the balance changes of an account.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var history struct {
			Account string            `json:"account"`
			Changes []database.Change `json:"changes"`
		}
		if err := get("/v1/accounts/history/"+args[0], &history); err != nil {
			log.Fatal(err)
		}

		fmt.Println("For Account:", history.Account)
		for _, change := range history.Changes {
			fmt.Printf("block %-8d %+d\n", change.BlockNumber, change.Delta)
		}
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
