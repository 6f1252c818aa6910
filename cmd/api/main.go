package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"medregistry.org/internal/account"
	"medregistry.org/internal/audit"
	"medregistry.org/internal/auth"
	"medregistry.org/internal/httpapi"
	"medregistry.org/internal/notify"
	"medregistry.org/internal/obs"
	"medregistry.org/internal/store/memory"
	"medregistry.org/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		accountStore account.Store
		actorStore   auth.ActorStore
		auditStore   audit.Store
		directory    audit.ActorDirectory
		readyProbe   httpapi.ReadyProbe
	)

	if dsn := os.Getenv("MEDREGISTRY_PG_DSN"); dsn != "" {
		store, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer store.Close()
		accountStore, actorStore, auditStore, directory = store, store, store, store
		readyProbe = httpapi.ReadyProbe{DB: store.DB()}
	} else {
		store := memory.New()
		accountStore, actorStore, auditStore, directory = store, store, store, store
		log.Println("MEDREGISTRY_PG_DSN not set, using in-memory store")
	}

	var auditOpts []audit.Option
	if raw := os.Getenv("MEDREGISTRY_AUDIT_PAGE_SIZE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			log.Fatalf("invalid MEDREGISTRY_AUDIT_PAGE_SIZE %q", raw)
		}
		auditOpts = append(auditOpts, audit.WithPageSize(n))
	}
	auditLog, err := audit.New(auditStore, directory, auditOpts...)
	if err != nil {
		log.Fatalf("audit engine: %v", err)
	}
	admins, err := auth.NewService(actorStore)
	if err != nil {
		log.Fatalf("admin service: %v", err)
	}
	accounts, err := account.NewService(accountStore, auditLog, notify.NewLogSender())
	if err != nil {
		log.Fatalf("account service: %v", err)
	}

	api := httpapi.New(readyProbe, version, accounts, admins, auditLog)

	httpAddr := os.Getenv("MEDREGISTRY_HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	srv := &http.Server{
		Addr:              httpAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting medregistry-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	var healthSrv *httpapi.HealthServer
	if grpcAddr := os.Getenv("MEDREGISTRY_GRPC_ADDR"); grpcAddr != "" {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		healthSrv = httpapi.NewHealthServer(readyProbe)
		log.Printf("Starting grpc health on %s", grpcAddr)
		go func() {
			if err := healthSrv.Serve(lis); err != nil {
				log.Fatalf("grpc serve: %v", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if healthSrv != nil {
		healthSrv.Shutdown()
	}
	log.Println("Stopped")
}
