package servehttp

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"procurement/bizerror"
	"procurement/common"
	"procurement/domain/purchase"
	"procurement/domain/stagetype"
	"procurement/infra/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const DefaultListenAddr = ":8080"

// NewEngine wires the middlewares and every REST API of the service.
func NewEngine() *gin.Engine {
	engine := gin.Default()
	engine.Use(tracing.TracingIngress(), bizerror.ErrorHandling())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, common.ServiceName())
	})

	purchase.RegisterPurchasesRestAPI(engine)
	stagetype.RegisterStageTypesRestAPI(engine)
	return engine
}

func StartHTTPServer(engine *gin.Engine, addr string) {
	if addr == "" {
		addr = DefaultListenAddr
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// will call os.Exit(1)
			logrus.Fatalf("listen: %v", err)
		}
	}()
	logrus.Info("http server listening on ", addr)

	quit := make(chan os.Signal, 1)
	// kill (no param) default send syscall.SIGTERM
	// kill -2 send syscall.SIGINT
	// kill -9 send syscall.SIGKILL, can't be caught
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("[QUIT] shutdown signal has been received, the service will exit in 3 seconds.")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// graceful shutdown http.Server
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Fatalf("[QUIT] http server shutdown failed: %v", err)
	}
	logrus.Info("[QUIT] http server is shutdown gracefully, new request will be rejected.")
}
