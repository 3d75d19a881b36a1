package main

import "love-vault-backend/cmd"

func main() {
	cmd.Execute()
}
