// Package main generates a token secret suitable for the site environment.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/flairhub/flairhub/internal/tools/secretkey"
)

func main() {
	cfg, err := secretkey.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	if err := secretkey.Run(cfg, os.Stdout, nil); err != nil {
		log.Fatalf("generate secret: %v", err)
	}
}
