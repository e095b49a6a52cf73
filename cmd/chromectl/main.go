package main

import "github.com/chromectl/chromectl/cmd"

func main() {
	cmd.Execute()
}
