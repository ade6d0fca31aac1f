package main

import "github.com/iksnae/chatfold/cmd"

func main() {
	cmd.Execute()
}
