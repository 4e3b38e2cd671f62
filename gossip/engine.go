// Package gossip implements the cluster-membership and schema-dissemination mechanism of §4.7: a
// periodic tick that samples a peer and exchanges SYN/ACK/ACK2 digests and endpoint states, merging
// whichever side's (generation, version) is newer per endpoint.
package gossip

import (
	"context"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rusticdb/rusticdb/internode"
	"github.com/rusticdb/rusticdb/schema"
)

// DefaultTickInterval is the period between local gossip rounds (§4.7: "default 1s").
const DefaultTickInterval = time.Second

// DefaultFailThreshold is the number of missed ticks after which a peer is marked DOWN.
const DefaultFailThreshold = 10

// DefaultRemoveThreshold is the number of additional ticks, past DOWN, after which this rewrite
// treats a peer as removed from the partitioner (§4.7: "a tunable remove_threshold").
const DefaultRemoveThreshold = 60

// Sender delivers an encoded internode message body to a peer address ("ip:port").
type Sender interface {
	Send(peerAddr string, opcode internode.OpCode, body []byte) error
}

// MembershipListener is notified of endpoint lifecycle events the gossip engine observes. A node
// wires its partitioner and storage engine to this interface so that joins, departures and schema
// adoption trigger ring updates and redistribution (§4.5 "Redistribution", §4.7 "Any membership
// change triggers C4 redistribution").
type MembershipListener interface {
	OnEndpointUp(ip net.IP)
	OnEndpointDown(ip net.IP)
	OnEndpointRemoved(ip net.IP)
	OnSchemaAdopted()
}

// Engine is one node's gossip participant: it maintains the locally-known EndpointState for every
// peer (plus its own), fires a tick loop that samples peers and exchanges digests, and merges
// incoming state per the lexicographic-max rule of §4.7.
type Engine struct {
	LocalIP      net.IP
	InternodePort int
	TickInterval time.Duration
	FailThreshold int
	RemoveThreshold int

	catalog  *schema.Catalog
	sender   Sender
	listener MembershipListener

	mu          sync.RWMutex
	states      map[string]*schema.EndpointState // keyed by ip.String()
	missedTicks map[string]int
	down        map[string]bool

	rnd *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine returns a gossip Engine for localIP. generation should be the wall-clock second this
// process started (§4.6).
func NewEngine(localIP net.IP, internodePort int, generation int64, catalog *schema.Catalog, sender Sender, listener MembershipListener) *Engine {
	e := &Engine{
		LocalIP:         localIP,
		InternodePort:   internodePort,
		TickInterval:    DefaultTickInterval,
		FailThreshold:   DefaultFailThreshold,
		RemoveThreshold: DefaultRemoveThreshold,
		catalog:         catalog,
		sender:          sender,
		listener:        listener,
		states:          make(map[string]*schema.EndpointState),
		missedTicks:     make(map[string]int),
		down:            make(map[string]bool),
		rnd:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	e.states[localIP.String()] = &schema.EndpointState{
		Heartbeat: schema.HeartbeatState{Generation: generation, Version: 0},
		Application: schema.ApplicationState{
			Status:        schema.StatusUp,
			SchemaVersion: catalog.Version(),
			Keyspaces:     catalog.Snapshot(),
		},
	}
	return e
}

func (e *Engine) peerAddr(ip net.IP) string {
	return net.JoinHostPort(ip.String(), strconv.Itoa(e.InternodePort))
}

// AddSeed registers a peer this node knows about before ever hearing from it, so the first tick
// has somewhere to send a SYN.
func (e *Engine) AddSeed(ip net.IP) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := ip.String()
	if _, ok := e.states[key]; !ok {
		e.states[key] = &schema.EndpointState{
			Heartbeat:   schema.HeartbeatState{Generation: 0, Version: 0},
			Application: schema.ApplicationState{Status: schema.StatusUnknown, Keyspaces: map[string]*schema.KeyspaceSchema{}},
		}
	}
}

// Start begins the background tick loop.
func (e *Engine) Start(ctx context.Context) {
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.wg.Add(1)
	go e.loop()
}

// Stop halts the tick loop and waits for it to exit.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

func (e *Engine) loop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

func (e *Engine) tick() {
	e.mu.Lock()
	local := e.states[e.LocalIP.String()]
	local.Heartbeat.IncVersion()
	local.Application.SchemaVersion = e.catalog.Version()
	local.Application.Keyspaces = e.catalog.Snapshot()
	e.checkFailuresLocked()
	peer := e.pickPeerLocked()
	e.mu.Unlock()

	if peer == nil {
		return
	}
	e.sendSyn(peer)
}

// checkFailuresLocked bumps the missed-tick counter for every peer that hasn't been heard from
// this round and marks it DOWN or removed once it crosses the configured thresholds. Callers must
// hold e.mu.
func (e *Engine) checkFailuresLocked() {
	for key := range e.states {
		if key == e.LocalIP.String() {
			continue
		}
		e.missedTicks[key]++
		if e.missedTicks[key] == e.FailThreshold && !e.down[key] {
			e.down[key] = true
			e.states[key].Application.Status = schema.StatusDown
			ip := net.ParseIP(key)
			if e.listener != nil {
				go e.listener.OnEndpointDown(ip)
			}
			log.Info().Msgf("gossip: marking %s DOWN after %d missed ticks", key, e.missedTicks[key])
		} else if e.missedTicks[key] == e.FailThreshold+e.RemoveThreshold {
			ip := net.ParseIP(key)
			delete(e.states, key)
			delete(e.missedTicks, key)
			delete(e.down, key)
			if e.listener != nil {
				go e.listener.OnEndpointRemoved(ip)
			}
			log.Info().Msgf("gossip: removing %s after exceeding remove threshold", key)
		}
	}
}

// pickPeerLocked selects a live peer uniformly at random, occasionally (10% of ticks) picking a
// DOWN peer instead to detect recovery, per §4.7. Callers must hold e.mu.
func (e *Engine) pickPeerLocked() net.IP {
	var live, others []net.IP
	for key := range e.states {
		if key == e.LocalIP.String() {
			continue
		}
		ip := net.ParseIP(key)
		if e.down[key] {
			others = append(others, ip)
		} else {
			live = append(live, ip)
		}
	}
	if len(live) > 0 && (len(others) == 0 || e.rnd.Float64() > 0.1) {
		return live[e.rnd.Intn(len(live))]
	}
	if len(others) > 0 {
		return others[e.rnd.Intn(len(others))]
	}
	return nil
}

func (e *Engine) localDigests() []Digest {
	e.mu.RLock()
	defer e.mu.RUnlock()
	digests := make([]Digest, 0, len(e.states))
	for key, state := range e.states {
		digests = append(digests, digestFrom(net.ParseIP(key), state))
	}
	return digests
}

func (e *Engine) sendSyn(peer net.IP) {
	syn := &Syn{Digests: e.localDigests()}
	body, err := EncodeMessage(syn)
	if err != nil {
		log.Error().Err(err).Msg("gossip: cannot encode SYN")
		return
	}
	if err := e.sender.Send(e.peerAddr(peer), internode.OpCodeGossip, body); err != nil {
		log.Debug().Err(err).Msgf("gossip: SYN to %s failed", peer)
	}
}

// HandleMessage dispatches a received Gossip-opcode internode body to the right phase handler.
func (e *Engine) HandleMessage(from net.IP, body []byte) {
	msg, err := DecodeMessage(body)
	if err != nil {
		log.Error().Err(err).Msgf("gossip: cannot decode message from %v", from)
		return
	}
	switch m := msg.(type) {
	case *Syn:
		e.handleSyn(from, m)
	case *Ack:
		e.handleAck(from, m)
	case *Ack2:
		e.handleAck2(from, m)
	}
}

// handleSyn replies with an Ack carrying full state for everything the sender's digest says is
// stale, and a request for everything the sender knows more about.
func (e *Engine) handleSyn(from net.IP, syn *Syn) {
	e.mu.Lock()
	states := make(map[string]*schema.EndpointState)
	var request []Digest
	for _, d := range syn.Digests {
		key := d.Endpoint.String()
		local, ok := e.states[key]
		if !ok || d.isNewerThan(local.Heartbeat) {
			request = append(request, d)
			continue
		}
		if d.isOlderThan(local.Heartbeat) {
			states[key] = local.Clone()
		}
	}
	e.registerIfUnknownLocked(syn.Digests)
	e.mu.Unlock()

	ack := &Ack{States: states, Request: request}
	body, err := EncodeMessage(ack)
	if err != nil {
		log.Error().Err(err).Msg("gossip: cannot encode ACK")
		return
	}
	if err := e.sender.Send(e.peerAddr(from), internode.OpCodeGossip, body); err != nil {
		log.Debug().Err(err).Msgf("gossip: ACK to %s failed", from)
	}
}

// handleAck merges the states the peer sent, then replies with Ack2 carrying whatever the peer
// asked for.
func (e *Engine) handleAck(from net.IP, ack *Ack) {
	e.mergeStates(ack.States)

	e.mu.RLock()
	states := make(map[string]*schema.EndpointState)
	for _, d := range ack.Request {
		if local, ok := e.states[d.Endpoint.String()]; ok {
			states[d.Endpoint.String()] = local.Clone()
		}
	}
	e.mu.RUnlock()

	ack2 := &Ack2{States: states}
	body, err := EncodeMessage(ack2)
	if err != nil {
		log.Error().Err(err).Msg("gossip: cannot encode ACK2")
		return
	}
	if err := e.sender.Send(e.peerAddr(from), internode.OpCodeGossip, body); err != nil {
		log.Debug().Err(err).Msgf("gossip: ACK2 to %s failed", from)
	}
}

func (e *Engine) handleAck2(_ net.IP, ack2 *Ack2) {
	e.mergeStates(ack2.States)
}

func (e *Engine) registerIfUnknownLocked(digests []Digest) {
	for _, d := range digests {
		key := d.Endpoint.String()
		if _, ok := e.states[key]; !ok {
			e.states[key] = &schema.EndpointState{
				Heartbeat:   schema.HeartbeatState{Generation: d.Generation, Version: d.Version},
				Application: schema.ApplicationState{Status: schema.StatusUnknown, Keyspaces: map[string]*schema.KeyspaceSchema{}},
			}
		}
	}
}

// mergeStates applies the lexicographic-max merge rule of §4.7/§8: an incoming EndpointState
// replaces the local one iff its (generation, version) is strictly greater. Triggers membership
// and schema-adoption callbacks for whatever actually changed.
func (e *Engine) mergeStates(incoming map[string]*schema.EndpointState) {
	type change struct {
		ip    net.IP
		isNew bool
	}
	var changed []change
	adoptedSchema := false

	e.mu.Lock()
	for key, state := range incoming {
		local, ok := e.states[key]
		isNew := !ok
		if ok && !state.IsNewerThan(local) {
			continue
		}
		e.states[key] = state.Clone()
		delete(e.missedTicks, key)
		wasDown := e.down[key]
		delete(e.down, key)
		ip := net.ParseIP(key)
		if isNew || wasDown {
			changed = append(changed, change{ip: ip, isNew: isNew})
		}
		if state.Application.SchemaVersion > e.catalog.Version() {
			if e.catalog.Adopt(state.Application.Keyspaces, state.Application.SchemaVersion) {
				adoptedSchema = true
			}
		}
	}
	e.mu.Unlock()

	if e.listener == nil {
		return
	}
	for _, c := range changed {
		go e.listener.OnEndpointUp(c.ip)
	}
	if adoptedSchema {
		go e.listener.OnSchemaAdopted()
	}
}

// Snapshot returns a copy of every locally-known EndpointState, keyed by IP string.
func (e *Engine) Snapshot() map[string]*schema.EndpointState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]*schema.EndpointState, len(e.states))
	for key, state := range e.states {
		out[key] = state.Clone()
	}
	return out
}

// IsUp reports whether ip is known and not currently marked DOWN.
func (e *Engine) IsUp(ip net.IP) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	key := ip.String()
	if key == e.LocalIP.String() {
		return true
	}
	_, ok := e.states[key]
	return ok && !e.down[key]
}
