package cmd

import (
	"bytes"
	"fmt"
	"log"
	"net/http"

	"github.com/a-raghavan/blockchain-consortium/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var (
	from   string
	to     string
	amount int64
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	Run: func(cmd *cobra.Command, args []string) {
		tx := database.NewTx(database.AccountID(from), database.AccountID(to), amount)

		data, err := tx.Encode()
		if err != nil {
			log.Fatal(err)
		}

		resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", url), "application/json", bytes.NewReader(data))
		if err != nil {
			log.Fatal(err)
		}

		var status struct {
			Status string `json:"status"`
		}
		if err := decode(resp, &status); err != nil {
			log.Fatal(err)
		}

		fmt.Printf("%s: %s\n", tx, status.Status)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&from, "from", "f", "", "Account sending the amount.")
	sendCmd.MarkFlagRequired("from")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account receiving the amount.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.Flags().Int64VarP(&amount, "amount", "v", 0, "Amount to send.")
}
