package main

import "github.com/ardanlabs/gjchain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
