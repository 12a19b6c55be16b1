// Package main is the stockwatch CLI
//
// Usage:
//
//	go run ./cmd/stockwatch serve
//	go run ./cmd/stockwatch search apple
//	go run ./cmd/stockwatch migrate
package main

import (
	"os"

	"github.com/wonny/stockwatch/cmd/stockwatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
