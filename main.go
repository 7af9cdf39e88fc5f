package main

import "game-sync/cmd"

func main() {
	cmd.Execute()
}
