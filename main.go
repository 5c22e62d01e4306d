package main

import (
	"cliptone/cmd"
)

func main() {
	cmd.Execute()
}
