package main

import "github.com/example/passport-scheduler/cmd"

func main() {
	cmd.Execute()
}
