package main

import "aegis-sync/internal/cli"

func main() {
	cli.Execute()
}
