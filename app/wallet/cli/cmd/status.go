package cmd

import (
	"fmt"
	"log"

	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the latest block and the pending transactions.",
	Run: func(cmd *cobra.Command, args []string) {
		var blocks []database.BlockData
		if err := get("/v1/blocks/list/latest/latest", &blocks); err != nil {
			log.Fatal(err)
		}

		var pending []database.Tx
		if err := get("/v1/tx/uncommitted/list", &pending); err != nil {
			log.Fatal(err)
		}

		switch len(blocks) {
		case 0:
			fmt.Println("Latest Block: none")
		default:
			fmt.Println("Latest Block:", database.ToBlock(blocks[0]))
		}

		fmt.Println("Pending     :", len(pending))
		for _, tx := range pending {
			fmt.Println("  ", tx)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
