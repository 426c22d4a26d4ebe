package main

import (
	"flag"
	"log"

	"go-azml-client/internal/blob"
	"go-azml-client/pkg/mockazml"
	"go-azml-client/pkg/router"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	dataDir := flag.String("data", "mockazml-data", "directory backing the fake blob store")
	flag.Parse()

	service := mockazml.New(blob.NewDiskStore(*dataDir))

	// Create router
	r := router.New()

	// Register fake service routes
	service.RegisterRoutes(r)

	log.Printf("📦 fake blob store at %s", *dataDir)

	// Start server
	r.Start(*addr)
}
