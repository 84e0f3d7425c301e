package main

import "github.com/mcoot/lobbyengine/internal/cli"

func main() {
	cli.Execute()
}
