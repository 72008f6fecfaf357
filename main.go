package main

import (
	"spookify/cmd"
)

func main() {
	cmd.Execute()
}
