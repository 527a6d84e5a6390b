package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/AutoAid/ServiceDesk/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	a := buildApp(cfg, defaultFactories())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a.run(ctx)

	if err := runHTTPServer(ctx, httpOpts{
		httpAddr:    cfg.ServiceDesk.HTTPAddr,
		swaggerPath: os.Getenv("swaggerPath"),
	}, a); err != nil && err != context.Canceled && err != http.ErrServerClosed {
		panic(err)
	}
}
