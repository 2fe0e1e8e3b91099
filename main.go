package main

import "github.com/argobridge/argobridge/cmd"

func main() {
	cmd.Execute()
}
