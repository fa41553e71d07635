package main

import "mediathek/cmd"

func main() {
	cmd.Execute()
}
