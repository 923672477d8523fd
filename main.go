package main

import "critiq/cmd"

func main() {
	cmd.Execute()
}
