package main

import "github.com/derickschaefer/stockcast/cmd"

func main() {
	cmd.Execute()
}
