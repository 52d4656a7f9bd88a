package main

import "github.com/zepben/eas-go/cmd"

func main() {
	cmd.Execute()
}
