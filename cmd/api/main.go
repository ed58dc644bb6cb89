package main

import (
	"log"
	"net/http"

	"quizsmith/internal/api"
	"quizsmith/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	h := api.NewServer(cfg)
	log.Printf("quizsmith api listening on %s quiz_providers=%q", cfg.APIAddr, cfg.QuizProviders)
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		log.Fatal(err)
	}
}
