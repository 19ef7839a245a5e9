package main

import (
	"os"

	"makellamafile/internal/cli"
)

func main() { os.Exit(cli.Main()) }
