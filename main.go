package main

import "github.com/ethogram-lab/boris-clip/cli"

func main() {
	cli.Execute()
}
