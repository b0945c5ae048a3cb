package main

import "github.com/encodeous/chainsdn/cmd"

func main() {
	cmd.Execute()
}
