package main

import (
	"os"

	"nara.lk/portal/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
