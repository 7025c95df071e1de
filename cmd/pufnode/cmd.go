package main

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pufid/pufnode/api"
	"github.com/pufid/pufnode/db"
	"github.com/pufid/pufnode/devicetree"
	"github.com/pufid/pufnode/events"
	"github.com/pufid/pufnode/prover"
	"github.com/pufid/pufnode/registry"
	flag "github.com/spf13/pflag"
	kvdb "go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/pebbledb"
	"go.vocdoni.io/dvote/log"
)

// Config contains the main configuration parameters of the node
type Config struct {
	dir, logLevel, port string
	proofCacheTTL       time.Duration
	kafkaBrokers        string
	kafkaTopic          string
}

func main() {
	config := Config{}

	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	flag.StringVarP(&config.dir, "dir", "d", filepath.Join(home, ".pufnode"),
		"storage data directory")
	flag.StringVarP(&config.logLevel, "logLevel", "l", "info", "log level (info, debug, warn, error)")
	flag.StringVarP(&config.port, "port", "p", "8080", "network port for the HTTP API")
	flag.DurationVar(&config.proofCacheTTL, "cachettl", 10*time.Minute,
		"TTL of the proof cache entries")
	flag.StringVar(&config.kafkaBrokers, "kafka", "",
		"comma separated Kafka broker addresses (empty disables the Kafka event sink)")
	flag.StringVar(&config.kafkaTopic, "kafkatopic", "pufnode-events",
		"Kafka topic for the event sink")

	flag.CommandLine.SortFlags = false
	flag.Parse()

	log.Init(config.logLevel, "stdout")

	log.Debugf("Config: %#v\n", config)

	// prepare DB
	sqlDB, err := sql.Open("sqlite3", filepath.Join(config.dir, "pufnode.sqlite3"))
	if err != nil {
		log.Fatal(err)
	}
	sqlite := db.NewSQLite(sqlDB)
	err = sqlite.Migrate()
	if err != nil {
		log.Fatal(err)
	}

	// prepare device MerkleTree
	opts := kvdb.Options{Path: filepath.Join(config.dir, "devicetree")}
	database, err := pebbledb.New(opts)
	if err != nil {
		log.Fatal(err)
	}
	tree, err := devicetree.New(devicetree.Options{DB: database})
	if err != nil {
		log.Fatal(err)
	}

	// prepare proof backend. Setup compiles the circuit and generates the
	// Groth16 keys, which takes a while.
	log.Info("compiling authentication circuit and running Groth16 setup")
	local, err := prover.NewLocal()
	if err != nil {
		log.Fatal(err)
	}
	backend := prover.NewCachedBackend(local, config.proofCacheTTL)

	// prepare event sink
	var sink events.Sink = events.LogSink{}
	if config.kafkaBrokers != "" {
		brokers := strings.Split(config.kafkaBrokers, ",")
		kafkaSink := events.NewKafkaSink(brokers, config.kafkaTopic)
		defer kafkaSink.Close() //nolint:errcheck
		sink = kafkaSink
		log.Infof("Kafka event sink enabled, brokers: %v, topic: %s",
			brokers, config.kafkaTopic)
	}

	reg, err := registry.New(registry.Options{
		Store:    sqlite,
		Verifier: backend,
		Sink:     sink,
		Tree:     tree,
	})
	if err != nil {
		log.Fatal(err)
	}

	a, err := api.New(reg, tree)
	if err != nil {
		log.Fatal(err)
	}
	err = a.Serve(config.port)
	if err != nil {
		log.Fatal(err)
	}
}
