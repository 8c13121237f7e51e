// Copyright 2025 Ledgerflow Authors

package sigverify

import (
	"context"
	"sync"

	"github.com/ledgerflow/txengine/pkg/keys"
)

// WorkerPool is the default CryptoEngine: a bounded pool of goroutines
// draining a shared job queue. Production deployments may swap this for
// a dedicated crypto-offload process; tests use SyncEngine instead
// (spec.md §9 "Global crypto worker pool").
type WorkerPool struct {
	jobs chan workItem
	wg   sync.WaitGroup
}

type workItem struct {
	job   Job
	reply chan<- bool
}

// NewWorkerPool starts n goroutines pulling from an internal queue of
// depth queueDepth. Call Close to stop accepting new batches once no
// further verification will be submitted.
func NewWorkerPool(n, queueDepth int) *WorkerPool {
	if n < 1 {
		n = 1
	}
	if queueDepth < 1 {
		queueDepth = 1
	}
	p := &WorkerPool{jobs: make(chan workItem, queueDepth)}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.loop()
	}
	return p
}

func (p *WorkerPool) loop() {
	defer p.wg.Done()
	for item := range p.jobs {
		item.reply <- evaluate(item.job)
		close(item.reply)
	}
}

// SubmitBatch implements CryptoEngine. Jobs are fanned into the shared
// queue; the caller receives one result channel (buffered, capacity 1) per job,
// matching the per-signature leaf futures spec.md §4.2 describes.
func (p *WorkerPool) SubmitBatch(ctx context.Context, jobs []Job) []<-chan bool {
	out := make([]<-chan bool, len(jobs))
	for i, j := range jobs {
		reply := make(chan bool, 1)
		out[i] = reply
		select {
		case p.jobs <- workItem{job: j, reply: reply}:
		case <-ctx.Done():
			reply <- false
			close(reply)
		}
	}
	return out
}

// Close stops the pool from accepting further batches and waits for
// in-flight jobs to finish. Safe to call once.
func (p *WorkerPool) Close() {
	close(p.jobs)
	p.wg.Wait()
}

// evaluate dispatches on variant. SignedMsg for ECDSA arrives already
// keccak256-hashed (pkg/sigexpand.ToJobs does this once, before the job
// ever reaches the pool) — hashing it again here would make every valid
// ECDSA signature fail to verify.
func evaluate(j Job) bool {
	switch j.Variant {
	case keys.VariantEcdsaSecp256k1:
		return VerifyEcdsaSecp256k1(j.KeyBytes, j.SignedMsg, j.Signature)
	case keys.VariantEd25519:
		return VerifyEd25519(j.KeyBytes, j.SignedMsg, j.Signature)
	default:
		return false
	}
}

// SyncEngine is a synchronous, deterministic CryptoEngine used in tests
// (spec.md §9: "a synchronous stub"). Results are delivered on an
// already-closed-after-send channel so Await never blocks.
type SyncEngine struct{}

func (SyncEngine) SubmitBatch(ctx context.Context, jobs []Job) []<-chan bool {
	out := make([]<-chan bool, len(jobs))
	for i, j := range jobs {
		reply := make(chan bool, 1)
		reply <- evaluate(j)
		close(reply)
		out[i] = reply
	}
	return out
}
