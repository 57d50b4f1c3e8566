package main

import cmd "github.com/rohmanhakim/silent-crawler/internal/cli"

func main() {
	cmd.Execute()
}
