package main

import "github.com/dl-alexandre/gdrv-ingest/internal/cli"

func main() {
	cli.Execute()
}
