package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/peterkuimelis/grandline/internal/app"
	"github.com/peterkuimelis/grandline/internal/web"
)

func main() {
	configFile := flag.String("config", "", "path to config file")
	addr := flag.String("addr", "", "listen address (overrides server.addr)")
	flag.Parse()

	a, err := app.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()
	if a.Config.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	listen := a.Config.Server.Addr
	if *addr != "" {
		listen = *addr
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := web.NewServer(a.Service, a.Table, a.Store, a.Log.Named("web"))
	if err := srv.ListenAndServe(ctx, listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
