package main

import "github.com/theakshaypant/meetbar/cmd/meetbar/cmd"

func main() {
	cmd.Execute()
}
