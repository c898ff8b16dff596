package main

import "github.com/jetteezhou/PhysVLM-Intent/internal/cli"

func main() {
	cli.Main()
}
