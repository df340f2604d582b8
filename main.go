package main

import "github.com/Zerofisher/ticsmerge/cmd"

func main() {
	cmd.Execute()
}
