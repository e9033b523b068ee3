package main

import (
	cmd "github.com/rohmanhakim/scroll-gateway/internal/cli"
)

func main() {
	cmd.Execute()
}
