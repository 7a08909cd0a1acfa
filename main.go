package main

import "crypto-recommendations/internal/cli"

func main() {
	cli.Execute()
}
