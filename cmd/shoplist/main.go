package main

import (
	"os"

	"github.com/imrishuroy/go-shoplist/internal/cli"
)

func main() {
	os.Exit(cli.Main())
}
