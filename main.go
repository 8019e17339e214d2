package main

import "github.com/galkinart-netizen/tg-bot-911/cmd"

func main() {
	cmd.Execute()
}
