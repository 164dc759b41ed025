package main

import "github.com/MeKo-Tech/reliefkit/internal/cmd"

func main() {
	cmd.Execute()
}
