package main

import (
	"os"

	"horse.fit/newsroom/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
