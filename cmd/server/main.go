package main

import "go-gin-event-management/cmd/server/cmd"

func main() {
	cmd.Execute()
}
