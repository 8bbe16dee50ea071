package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyclo/millplan/internal/model"
	perrors "github.com/cyclo/millplan/pkg/errors"
	"github.com/cyclo/millplan/pkg/parser"
	"github.com/cyclo/millplan/pkg/server"
)

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the planning HTTP API",
	Long: `Start an HTTP server that plans uploaded order workbooks.

Endpoints:
  GET  /api/health         status and planner metrics
  GET  /api/config         lines, pools and shifts
  POST /api/plan           multipart "orders" (+ optional "machines", "start") -> plan JSON
  POST /api/plan/xlsx      same, returns the plan workbook
  GET  /api/runs           plans served since startup
  GET  /api/runs/{id}      one plan; append /summary or /xlsx

Examples:
  millplan serve
  millplan serve --port 3000 --host 0.0.0.0`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default: server.port from config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: server.host from config)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	host, port := a.cfg.Server.Host, a.cfg.Server.Port
	if cmd.Flags().Changed("host") {
		host = serveHost
	}
	if cmd.Flags().Changed("port") {
		port = servePort
	}

	var machines []model.MachineProfile
	if a.cfg.Machines.File != "" {
		pcfg := parser.DefaultConfig()
		pcfg.Sheet = a.cfg.Machines.Sheet
		machines, err = parser.ReadMachinesFile(ctx, a.cfg.Machines.File, pcfg)
		switch {
		case perrors.IsCode(err, perrors.CodeFileNotFound):
			a.log.Warn("machines.file not found; requests must upload a machines table", "path", a.cfg.Machines.File)
		case err != nil:
			return fmt.Errorf("read machines: %w", err)
		}
	} else {
		a.log.Warn("no machines.file configured; requests must upload a machines table")
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.New(a.planner, machines, a.log),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	a.log.Info("serving", "addr", listener.Addr().String(), "machines", len(machines))

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
