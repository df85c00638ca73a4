package main

import "github.com/jkratochvil/facemark/cmd"

func main() {
	cmd.Execute()
}
