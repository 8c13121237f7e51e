// Copyright 2025 Ledgerflow Authors
//
// Package spi is the typed-handler service-provider interface: the seam
// between the engine's pre-handle/handle workflows and per-transaction-
// kind business logic (spec.md §6 "Typed handler SPI"). The engine
// itself never interprets a transaction body; it only calls pre_handle
// and handle on whichever Handler is registered for the body's Kind.
package spi

import (
	"context"

	"github.com/ledgerflow/txengine/pkg/keys"
	"github.com/ledgerflow/txengine/pkg/sigverify"
	"github.com/ledgerflow/txengine/pkg/store"
	"github.com/ledgerflow/txengine/pkg/types"
)

// PreCheckError is a handler's structured rejection during pre_handle,
// carrying the response code the pre-handle workflow should attach to a
// PreHandleFailure (spec.md §6).
type PreCheckError struct {
	Code types.ResponseCode
}

func (e *PreCheckError) Error() string { return "spi: precheck failed: " + string(e.Code) }

// HandleError is a handler's structured rejection during handle,
// carrying the response code the handle workflow attaches to the
// emitted record after discarding mutations (spec.md §4.7 step 6).
type HandleError struct {
	Code types.ResponseCode
}

func (e *HandleError) Error() string { return "spi: handle failed: " + string(e.Code) }

// HandlerOutcome is the explicit result variant every handle dispatch
// reduces to, replacing ad-hoc dispatch on which exception type escaped
// (spec.md §9 Design Notes "Ad-hoc polymorphism over exception
// classes"). The engine switches on this, never on a Go error's
// concrete type.
type HandlerOutcome struct {
	kind oKind
	code types.ResponseCode
}

type oKind int

const (
	outcomeOk oKind = iota
	outcomeFailed
	outcomeUnknown
)

func Ok() HandlerOutcome                           { return HandlerOutcome{kind: outcomeOk} }
func Failed(code types.ResponseCode) HandlerOutcome { return HandlerOutcome{kind: outcomeFailed, code: code} }
func Unknown() HandlerOutcome                       { return HandlerOutcome{kind: outcomeUnknown} }

func (o HandlerOutcome) IsOk() bool      { return o.kind == outcomeOk }
func (o HandlerOutcome) IsFailed() bool  { return o.kind == outcomeFailed }
func (o HandlerOutcome) IsUnknown() bool { return o.kind == outcomeUnknown }
func (o HandlerOutcome) Code() types.ResponseCode {
	switch o.kind {
	case outcomeOk:
		return types.OK
	case outcomeUnknown:
		return types.Unknown
	default:
		return o.code
	}
}

// FromHandleErr classifies a handle() return value into a HandlerOutcome
// per spec.md §4.7 step 6: a *HandleError carries its code, anything
// else collapses to Unknown, nil is Ok.
func FromHandleErr(err error) HandlerOutcome {
	if err == nil {
		return Ok()
	}
	if he, ok := err.(*HandleError); ok {
		return Failed(he.Code)
	}
	return Unknown()
}

// PreHandleContext is passed to Handler.PreHandle. It exposes a readable
// view of account state plus the three recorders spec.md §6 names:
// RequireKey, OptionalKey, RequireSignatureForHollowAccount.
type PreHandleContext struct {
	Store    store.ReadableAccountStore
	Payer    types.AccountID
	required *keys.Set
	optional *keys.Set
	aliases  []types.EvmAlias
}

func NewPreHandleContext(readable store.ReadableAccountStore, payer types.AccountID) *PreHandleContext {
	return &PreHandleContext{Store: readable, Payer: payer, required: keys.NewSet(), optional: keys.NewSet()}
}

func (c *PreHandleContext) RequireKey(k keys.Key) { c.required.Add(k) }
func (c *PreHandleContext) OptionalKey(k keys.Key) { c.optional.Add(k) }

// RequireSignatureForHollowAccount records that this transaction needs a
// completing signature for the ECDSA key behind alias, rather than a
// key known up front (spec.md §4.6 step 6, §8 scenario 6).
func (c *PreHandleContext) RequireSignatureForHollowAccount(alias types.EvmAlias) {
	c.aliases = append(c.aliases, alias)
}

// RequiredKeys returns the cumulative set recorded via RequireKey.
func (c *PreHandleContext) RequiredKeys() *keys.Set { return c.required }

// OptionalKeys returns the cumulative set recorded via OptionalKey.
// Optional keys do not gate dispatch; they are available for
// informational display only (spec.md §3 glossary).
func (c *PreHandleContext) OptionalKeys() *keys.Set { return c.optional }

// HollowAccountAliases returns every alias recorded via
// RequireSignatureForHollowAccount.
func (c *PreHandleContext) HollowAccountAliases() []types.EvmAlias {
	return append([]types.EvmAlias(nil), c.aliases...)
}

// Verifier is the facade a HandleContext exposes to typed handlers
// (component C8, spec.md §4.8).
type Verifier interface {
	VerificationFor(ctx context.Context, k keys.Key) sigverify.SignatureVerification
	VerificationForAlias(ctx context.Context, alias types.EvmAlias) sigverify.SignatureVerification
}

// HandleContext is passed to Handler.Handle: a writable view of account
// state plus the verifier facade (spec.md §6, §4.7 step 6).
type HandleContext struct {
	Writable store.WritableAccountStore
	Payer    types.AccountID
	Verifier Verifier
}

// Handler is the typed-handler SPI every transaction kind registers
// (spec.md §6). PreHandle may return a *PreCheckError; Handle may return
// a *HandleError; any other error is treated as unknown per the
// classification tables in §4.6/§4.7.
type Handler interface {
	Kind() string
	PreHandle(pre *PreHandleContext, body types.TransactionBody) error
	Handle(ctx context.Context, hc *HandleContext, body types.TransactionBody) error
}

// Registry maps transaction kinds to their registered Handler.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) {
	r.handlers[h.Kind()] = h
}

func (r *Registry) Lookup(kind string) (Handler, bool) {
	h, ok := r.handlers[kind]
	return h, ok
}
