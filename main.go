package main

import "emojify/cmd"

func main() {
	cmd.Execute()
}
