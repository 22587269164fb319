package main

import (
	"context"
	"log"

	"github.com/g1appdev/hubbits/internal/mockapi"
	"github.com/g1appdev/hubbits/internal/mockapi/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := mockapi.NewApp(cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)
}
