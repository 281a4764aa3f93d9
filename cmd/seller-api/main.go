package main

import (
	"log"

	"github.com/Omaralyxt/Lumi-Seller/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatalf("seller api failed: %v", err)
	}
}
