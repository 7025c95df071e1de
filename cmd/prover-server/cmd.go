package main

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/pufid/pufnode/prover"
	flag "github.com/spf13/pflag"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/pebbledb"
	"go.vocdoni.io/dvote/log"
)

var port, dir, logLevel string

type api struct {
	r *gin.Engine
	sync.Mutex

	lastID  uint64
	db      db.Database
	backend prover.Backend
}

func main() {
	flag.StringVarP(&port, "port", "p", "9000", "network port for the HTTP API")
	flag.StringVarP(&dir, "dir", "d", "~/.proverserver", "db & files directory")
	flag.StringVarP(&logLevel, "logLevel", "l", "info", "log level (info, debug, warn, error)")
	flag.Parse()

	log.Init(logLevel, "stdout")

	opts := db.Options{Path: dir}
	database, err := pebbledb.New(opts)
	if err != nil {
		log.Fatal(err)
	}

	log.Info("compiling authentication circuit and running Groth16 setup")
	backend, err := prover.NewLocal()
	if err != nil {
		log.Fatal(err)
	}

	a := newAPI(database, backend)

	err = a.r.Run(":" + port)
	if err != nil {
		log.Fatal(err)
	}
}

func newAPI(database db.Database, backend prover.Backend) *api {
	a := api{
		db:      database,
		backend: backend,
	}
	a.lastID = a.loadLastID()

	a.r = gin.Default()
	a.r.GET("/status", a.getStatus)
	a.r.POST("/proof", a.genProof)
	a.r.GET("/proof/:id", a.getProof)

	return &a
}

type errorMsg struct {
	Message string `json:"message"`
}

func returnErr(c *gin.Context, err error) {
	log.Warnw("HTTP API Bad request error", "err", err)
	c.JSON(http.StatusBadRequest, errorMsg{
		Message: err.Error(),
	})
}

func (a *api) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
