package main

import "github.com/a-raghavan/blockchain-consortium/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
