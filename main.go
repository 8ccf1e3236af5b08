package main

import "github.com/medelia/face-attendance/cmd"

func main() {
	cmd.Execute()
}
