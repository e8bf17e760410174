package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/avstrong/hotelbooking/internal/app"
	"github.com/avstrong/hotelbooking/internal/logger"
)

func main() {
	envFiles := flag.String("env", ".env", "comma separated list of env files to load before the environment")
	flag.Parse()

	l := logger.New(log.New(os.Stdout, "", log.LstdFlags|log.LUTC|log.Lmsgprefix))

	var files []string

	for _, f := range strings.Split(*envFiles, ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}

	if err := app.Run(l, files...); err != nil {
		l.LogErrorf("Failed to run hotel booking service: %v", err.Error())
		os.Exit(1)
	}
}
