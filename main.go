package main

import "batchconv/cmd"

func main() {
	cmd.Execute()
}
