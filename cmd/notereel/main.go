package main

import "github.com/forPelevin/notereel/internal/cli"

func main() {
	cli.Main()
}
