package main

import "github.com/KaramelBytes/xdrscope-cli/cmd"

func main() {
	cmd.Execute()
}
