package main

import "github.com/steadycam/steady/cmd/steady/cmd"

func main() {
	cmd.Execute()
}
