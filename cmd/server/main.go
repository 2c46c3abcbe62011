package main

import (
	"fmt"
	"os"

	"github.com/Jordy7598/intranet-rosmo-sub001/internal/app/server"
)

func main() {
	if err := server.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}
