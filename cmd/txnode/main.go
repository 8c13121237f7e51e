// Copyright 2025 Ledgerflow Authors
//
// txnode is a demo host for the engine: an HTTP-facing gossip
// simulation feeding a bounded pre-handle worker pool (spec.md §5
// "Pre-handle domain"), with submissions drained in arrival order by a
// single handle goroutine (spec.md §5 "Handle domain": single-threaded,
// in order). Structured the way the teacher's main.go wires its
// validator node: flag parsing, optional-dependency degraded-mode
// startup, context cancellation, and signal-driven graceful shutdown.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ledgerflow/txengine/pkg/audit"
	"github.com/ledgerflow/txengine/pkg/config"
	"github.com/ledgerflow/txengine/pkg/dedup"
	"github.com/ledgerflow/txengine/pkg/handle"
	"github.com/ledgerflow/txengine/pkg/handlers/cryptotransfer"
	"github.com/ledgerflow/txengine/pkg/handlers/freeze"
	"github.com/ledgerflow/txengine/pkg/keys"
	"github.com/ledgerflow/txengine/pkg/prehandle"
	"github.com/ledgerflow/txengine/pkg/recordcache"
	"github.com/ledgerflow/txengine/pkg/sigverify"
	"github.com/ledgerflow/txengine/pkg/spi"
	"github.com/ledgerflow/txengine/pkg/store"
	"github.com/ledgerflow/txengine/pkg/types"
)

const demoPayer = uint64(100)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("starting txnode")

	var (
		configPath = flag.String("config", "", "path to YAML config (defaults built in if omitted)")
		nodeID     = flag.Uint64("node-id", 3, "this node's account id, charged on due-diligence failures")
		dataDir    = flag.String("data-dir", "./data", "directory for freeze markers and other local state")
		listenAddr = flag.String("listen", ":8645", "HTTP listen address")
		workers    = flag.Int("prehandle-workers", 4, "pre-handle worker pool size")
		auditDSN   = flag.String("audit-dsn", "", "optional Postgres DSN for the audit mirror; empty disables it")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	log.Printf("loaded config version %d", cfg.ConfigVersion)

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Fatalf("failed to create data dir %s: %v", *dataDir, err)
	}

	auditClient, err := dialAudit(*auditDSN)
	if err != nil {
		log.Printf("WARNING: audit mirror unavailable, running without durable record mirroring: %v", err)
		auditClient = nil
	}
	defer auditClient.Close()

	backing := store.NewMemAccountStore()
	payerPub, payerPriv := seedDemoAccount(backing)
	log.Printf("demo payer account.num=%d pubkey=%s", demoPayer, hex.EncodeToString(payerPub))
	log.Printf("demo payer private key (local testing only): %s", hex.EncodeToString(payerPriv))

	registry := spi.NewRegistry()
	registry.Register(cryptotransfer.New())
	registry.Register(freeze.New(*dataDir))

	dedupCache := dedup.New(cfg.DedupHorizon())
	records := recordcache.New(cfg.Ledger.RecordsMaxQueryableByAccount)
	verifier := sigverify.NewEngine(sigverify.NewWorkerPool(*workers, 256))

	creator := types.AccountID{Num: *nodeID}
	preWF := prehandle.New(func() store.ReadableAccountStore { return backing }, creator, dedupCache, verifier, registry, cfg.DedupHorizon(), uint64(cfg.ConfigVersion))
	handleWF := handle.New(backing, preWF, verifier, registry, records, cfg.WorkflowVerificationTimeout(), uint64(cfg.ConfigVersion), cfg.HaltOnVerificationTimeout)

	ctx, cancel := context.WithCancel(context.Background())

	node := newNode(preWF, handleWF, records, auditClient, creator, *workers)
	node.start(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/transactions", node.submitHandler)
	mux.HandleFunc("/records/", node.recordsHandler)
	mux.HandleFunc("/health", healthHandler)

	httpServer := &http.Server{Addr: *listenAddr, Handler: mux}
	go func() {
		log.Printf("txnode HTTP listening on %s", *listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	// Periodic dedup purge (spec.md §4.3); the handle workflow itself
	// never purges the cache.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purged := dedupCache.Purge(time.Now())
				if purged > 0 {
					log.Printf("purged %d expired dedup entries", purged)
				}
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("shutting down txnode")
	cancel()
	node.stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http server shutdown error: %v", err)
	}
	log.Printf("txnode stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func dialAudit(dsn string) (*audit.Client, error) {
	if dsn == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := audit.NewClient(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := client.EnsureSchema(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func seedDemoAccount(backing *store.AccountStore) (ed25519.PublicKey, ed25519.PrivateKey) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		log.Fatalf("failed to generate demo key: %v", err)
	}
	acct := store.Account{ID: types.AccountID{Num: demoPayer}, Key: keys.NewEd25519(pub), Balance: 1_000_000}
	if err := backing.PutAccount(acct); err != nil {
		log.Fatalf("failed to seed demo account: %v", err)
	}
	return pub, priv
}

// node wires the gossip-simulation worker pool to the handle workflow:
// submissions land on preCh, are opportunistically pre-handled by a
// bounded pool of goroutines, and are drained in arrival order by a
// single goroutine that calls HandleTransaction — re-running pre-handle
// itself if the background pass hasn't finished yet.
type node struct {
	preWF    *prehandle.Workflow
	handleWF *handle.Workflow
	records  *recordcache.Cache
	auditC   *audit.Client
	creator  types.AccountID

	preCh     chan *types.TransactionEnvelope
	orderedCh chan *types.TransactionEnvelope
	workers   int

	wg sync.WaitGroup
}

func newNode(preWF *prehandle.Workflow, handleWF *handle.Workflow, records *recordcache.Cache, auditC *audit.Client, creator types.AccountID, workers int) *node {
	return &node{
		preWF:     preWF,
		handleWF:  handleWF,
		records:   records,
		auditC:    auditC,
		creator:   creator,
		preCh:     make(chan *types.TransactionEnvelope, 256),
		orderedCh: make(chan *types.TransactionEnvelope, 256),
		workers:   workers,
	}
}

func (n *node) start(ctx context.Context) {
	for i := 0; i < n.workers; i++ {
		n.wg.Add(1)
		go n.preHandleLoop(ctx)
	}
	n.wg.Add(1)
	go n.handleLoop(ctx)
}

func (n *node) stop() {
	close(n.preCh)
	close(n.orderedCh)
	n.wg.Wait()
}

func (n *node) preHandleLoop(ctx context.Context) {
	defer n.wg.Done()
	for env := range n.preCh {
		n.preWF.Process(ctx, env)
	}
}

func (n *node) handleLoop(ctx context.Context) {
	defer n.wg.Done()
	for env := range n.orderedCh {
		now := time.Now()
		env.WithConsensusTimestamp(now)
		rec := n.handleWF.HandleTransaction(ctx, env, now)
		if rec == nil {
			continue
		}
		if n.auditC != nil {
			if err := n.auditC.Record(ctx, *rec); err != nil {
				log.Printf("WARNING: audit mirror write failed for tx %s: %v", rec.TxID.Key(), err)
			}
		}
	}
}

func (n *node) submit(raw []byte) *types.TransactionEnvelope {
	env := types.NewEnvelope(raw, n.creator, false)
	n.preCh <- env
	n.orderedCh <- env
	return env
}

func (n *node) submitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	env := n.submit(raw)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"gossipId": env.GossipID.String()})
}

func (n *node) recordsHandler(w http.ResponseWriter, r *http.Request) {
	var num uint64
	if _, err := fmt.Sscanf(r.URL.Path, "/records/%d", &num); err != nil {
		http.Error(w, "expected /records/{num}", http.StatusBadRequest)
		return
	}
	recs := n.records.RecordsFor(types.AccountID{Num: num})
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recs)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
