package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"

	"voicemood/internal/cli"
)

func main() {
	// .env необязателен, переменные окружения имеют приоритет
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		if cli.Debug() {
			xerrors.Print(xerrors.New(err))
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
