package bridge

import (
	"context"
	"fmt"
	"math/big"

	"github.com/lambdaclass/agentwallet/agentlog"
)

// Router composes the protocol registry, the tracking registry, and
// route selection into the operations the wallet facade calls, per
// spec.md §4.7. It owns no chain client directly; adapters do their
// own chain and HTTP I/O.
type Router struct {
	registry *Registry
	tracking *TrackingRegistry
	log      *agentlog.Logger

	allowedDestinations []int64
}

// NewRouter creates a router over an already-populated protocol
// registry.
func NewRouter(registry *Registry, allowedDestinations []int64) *Router {
	return &Router{
		registry:            registry,
		tracking:            NewTrackingRegistry(),
		log:                 agentlog.New("bridge"),
		allowedDestinations: allowedDestinations,
	}
}

// Tracking exposes the underlying tracking registry for the facade's
// status queries.
func (r *Router) Tracking() *TrackingRegistry { return r.tracking }

// Quote gathers quotes from every adapter supporting the requested
// route and scores them per pref.
func (r *Router) Quote(ctx context.Context, req Request, pref Preference) (*Selection, error) {
	candidates := r.registry.SupportingRoute(req.SourceChain, req.DestChain, req.Token)
	if len(candidates) == 0 {
		return nil, &NoRouteError{SourceChain: req.SourceChain, DestChain: req.DestChain, Token: req.Token}
	}

	var quotes []Quote
	attempts := make(map[string]error)
	for _, a := range candidates {
		q, err := a.Quote(ctx, req)
		if err != nil {
			r.log.Printf("quote error from %s: %v", a.Info().Name, err)
			attempts[a.Info().Name] = err
			continue
		}
		quotes = append(quotes, q)
	}

	if len(quotes) == 0 {
		return nil, &AllRoutesFailedError{Attempts: attempts}
	}

	return SelectRoute(quotes, pref, r.registry.ReliabilityScoreOf)
}

// Initiate validates the request, runs the named adapter's
// source-chain action, and creates a tracking id for the resulting
// transfer. The transfer starts at pending_burn and is advanced to
// burn_confirmed once the source-chain call returns successfully
// (spec.md §4.7.4's "burn submitted" edge).
func (r *Router) Initiate(ctx context.Context, protocol string, req Request, recipientRawHex string, amountUSD, gasUSD *big.Int) (string, *InitResult, error) {
	adapter, ok := r.registry.Get(protocol)
	if !ok {
		return "", nil, fmt.Errorf("protocol %q not registered", protocol)
	}

	if !adapter.IsRouteSupported(req.SourceChain, req.DestChain, req.Token) {
		return "", nil, &UnsupportedRouteError{
			Protocol:        protocol,
			SourceChain:     req.SourceChain,
			DestChain:       req.DestChain,
			SupportedChains: adapter.SupportedChains(),
		}
	}

	warnings, err := Validate(req, recipientRawHex, amountUSD, gasUSD, r.allowedDestinations, adapter.SupportedChains())
	if err != nil {
		return "", nil, err
	}
	for _, w := range warnings {
		r.log.Printf("validation warning [%s]: %s", w.Code, w.Message)
	}

	if available := adapter.IsAvailable(ctx); !available {
		return "", nil, &ProtocolUnavailableError{Protocol: protocol}
	}

	result, err := adapter.Initiate(ctx, req)
	if err != nil {
		return "", nil, fmt.Errorf("initiate via %s: %w", protocol, err)
	}

	trackingID := r.tracking.Create(protocol, req.SourceChain, req.DestChain, result.Identifier)
	r.tracking.StoreMetadata(trackingID, Metadata{
		MessageBytes:     result.MessageBytes,
		Nonce:            result.Nonce,
		DestinationChain: req.DestChain,
		AmountRaw:        req.Amount.String(),
		Recipient:        req.Recipient,
		ProtocolName:     protocol,
	})

	if err := r.tracking.Advance(trackingID, StatusBurnConfirmed, "source-chain transaction accepted"); err != nil {
		r.log.Printf("advance %s to burn_confirmed: %v", trackingID, err)
	}

	return trackingID, &result, nil
}

// Reconcile polls the owning adapter for identifier's current status
// and folds it into the tracking registry's state machine, per spec.md
// §4.7.4. Unknown tracking ids get the stale_unknown view (spec.md
// §4.7.4).
func (r *Router) Reconcile(ctx context.Context, trackingID string) (StatusResult, error) {
	components, ok := r.tracking.Parse(trackingID)
	if !ok {
		return StaleUnknownResult(), fmt.Errorf("malformed tracking id %q", trackingID)
	}

	if _, ok := r.tracking.Transfer(trackingID); !ok {
		return StaleUnknownResult(), nil
	}

	adapter, ok := r.registry.Get(components.Protocol)
	if !ok {
		return StaleUnknownResult(), fmt.Errorf("protocol %q not registered", components.Protocol)
	}

	result, err := adapter.Status(ctx, components.Identifier)
	if err != nil {
		return StatusResult{}, fmt.Errorf("status from %s: %w", components.Protocol, err)
	}

	if err := r.tracking.Advance(trackingID, result.State, result.Message); err != nil {
		r.log.Printf("advance %s to %s: %v", trackingID, result.State, err)
	}

	return result, nil
}

// AwaitCompletion drives a transfer from attestation_pending through to
// completed (or failed), per spec.md §4.7.1's attestation-based
// adapter flow. Intent-relayer adapters that have no attestation step
// simply return once their own Status reports completed.
func (r *Router) AwaitCompletion(ctx context.Context, trackingID string) (StatusResult, error) {
	components, ok := r.tracking.Parse(trackingID)
	if !ok {
		return StatusResult{}, fmt.Errorf("malformed tracking id %q", trackingID)
	}
	adapter, ok := r.registry.Get(components.Protocol)
	if !ok {
		return StatusResult{}, fmt.Errorf("protocol %q not registered", components.Protocol)
	}

	if err := r.tracking.Advance(trackingID, StatusAttestationPending, "waiting for attestation"); err != nil {
		r.log.Printf("advance %s to attestation_pending: %v", trackingID, err)
	}

	attestation, err := adapter.WaitForAttestation(ctx, components.Identifier)
	if err != nil {
		_ = r.tracking.Advance(trackingID, StatusFailed, err.Error())
		return StatusResult{}, &AttestationTimeoutError{TrackingID: trackingID}
	}
	_ = attestation

	if err := r.tracking.Advance(trackingID, StatusAttestationReady, "attestation received"); err != nil {
		r.log.Printf("advance %s to attestation_ready: %v", trackingID, err)
	}

	return r.Reconcile(ctx, trackingID)
}
