package coordinator

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rusticdb/rusticdb/cql"
	"github.com/rusticdb/rusticdb/internode"
	"github.com/rusticdb/rusticdb/message"
	"github.com/rusticdb/rusticdb/partitioner"
	"github.com/rusticdb/rusticdb/primitive"
	"github.com/rusticdb/rusticdb/rusticerr"
	"github.com/rusticdb/rusticdb/schema"
	"github.com/rusticdb/rusticdb/storage"
)

// DefaultTimeout is the open-query deadline of §4.4 step 8.
const DefaultTimeout = 3 * time.Second

// sender is the subset of internode.Transport the coordinator depends on.
type sender interface {
	Send(peerAddr string, opcode internode.OpCode, body []byte) error
}

// Coordinator implements the query-executor component of §4.4: it resolves a parsed statement's
// replica set via the partitioner, fans it out to the local storage engine and to remote peers
// over the internode transport, and reconciles replies into one client-facing result.
type Coordinator struct {
	LocalIP       net.IP
	InternodePort int
	Timeout       time.Duration

	Catalog     *schema.Catalog
	Storage     *storage.Engine
	Partitioner *partitioner.Partitioner
	Transport   sender

	// IsAlive reports whether ip is currently considered up. If nil, every partitioner member is
	// assumed alive, which is only correct for single-node or never-failing test setups; a real
	// deployment wires this to gossip.Engine.IsUp.
	IsAlive func(net.IP) bool

	clock    clock
	registry *registry
}

// NewCoordinator wires a Coordinator over the given node-local components.
func NewCoordinator(localIP net.IP, internodePort int, catalog *schema.Catalog, store *storage.Engine, ring *partitioner.Partitioner, transport sender) *Coordinator {
	return &Coordinator{
		LocalIP:       localIP,
		InternodePort: internodePort,
		Timeout:       DefaultTimeout,
		Catalog:       catalog,
		Storage:       store,
		Partitioner:   ring,
		Transport:     transport,
		registry:      newRegistry(),
	}
}

func (c *Coordinator) peerAddr(ip net.IP) string {
	return net.JoinHostPort(ip.String(), strconv.Itoa(c.InternodePort))
}

// consistencyRequirement returns how many of the rf replicas must acknowledge a request at the
// given level, per §4.4 step 5. Per §4.1 ("others (ANY, EACH_QUORUM, SERIAL, LOCAL_SERIAL) fail
// with ConfigError") and §9, the four unsupported levels are rejected rather than folded into a
// nearby supported one.
func consistencyRequirement(level primitive.ConsistencyLevel, rf int) (int, error) {
	switch level {
	case primitive.ConsistencyLevelOne, primitive.ConsistencyLevelLocalOne:
		return 1, nil
	case primitive.ConsistencyLevelTwo:
		return min(2, rf), nil
	case primitive.ConsistencyLevelThree:
		return min(3, rf), nil
	case primitive.ConsistencyLevelQuorum, primitive.ConsistencyLevelLocalQuorum:
		return rf/2 + 1, nil
	case primitive.ConsistencyLevelAll:
		return rf, nil
	case primitive.ConsistencyLevelAny, primitive.ConsistencyLevelEachQuorum, primitive.ConsistencyLevelSerial, primitive.ConsistencyLevelLocalSerial:
		return 0, rusticerr.ConfigError("consistency level %v is not supported", level)
	default:
		return 0, rusticerr.ConfigError("unknown consistency level %v", level)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Execute runs stmt to completion and returns the client-facing result message, or a *rusticerr.Err.
func (c *Coordinator) Execute(stmt cql.Statement, consistency primitive.ConsistencyLevel, clientID string) (message.Message, error) {
	switch s := stmt.(type) {
	case *cql.CreateKeyspace:
		return c.execCreateKeyspace(s)
	case *cql.AlterKeyspace:
		return c.execAlterKeyspace(s)
	case *cql.DropKeyspace:
		return c.execDropKeyspace(s)
	case *cql.CreateTable:
		return c.execCreateTable(s)
	case *cql.AlterTable:
		return c.execAlterTable(s)
	case *cql.DropTable:
		return c.execDropTable(s)
	case *cql.Insert:
		return c.execInsert(s, consistency, clientID)
	case *cql.Update:
		return c.execUpdate(s, consistency, clientID)
	case *cql.Delete:
		return c.execDelete(s, consistency, clientID)
	case *cql.Select:
		return c.execSelect(s, consistency, clientID)
	default:
		return nil, rusticerr.Invalid("unsupported statement type %T", stmt)
	}
}

// targets returns the primary owner and its RF-1 successors for partitionKey, per §4.4 step 4.
func (c *Coordinator) targets(keyspace, partitionKey string) (primary net.IP, replicas []net.IP, err error) {
	rf, err := c.Catalog.ReplicationFactor(keyspace)
	if err != nil {
		return nil, nil, err
	}
	primary, err = c.Partitioner.Owner(partitionKey)
	if err != nil {
		return nil, nil, rusticerr.Unavailable("no nodes available to serve %s: %v", keyspace, err)
	}
	if rf > 1 {
		replicas, err = c.Partitioner.Successors(primary, rf-1)
		if err != nil {
			return nil, nil, rusticerr.Unavailable("cannot compute replicas for %s: %v", keyspace, err)
		}
	}
	return primary, replicas, nil
}

// dispatch fans remoteQuery-shaped work out to every target (local or remote) and blocks
// until consistencyRequirement replies land or the deadline passes.
func (c *Coordinator) dispatch(kind queryKind, rf int, consistency primitive.ConsistencyLevel, primary net.IP, replicas []net.IP, build func(replication bool) *remoteQuery, execLocal func(q *remoteQuery, role storage.Role) ([]storage.ResultRow, error)) (*openQuery, error) {
	targets := append([]net.IP{primary}, replicas...)
	aliveCount := 0
	for _, t := range targets {
		if c.LocalIP.Equal(t) || c.isAlive(t) {
			aliveCount++
		}
	}
	expected, err := consistencyRequirement(consistency, rf)
	if err != nil {
		return nil, err
	}
	if aliveCount < expected {
		return nil, rusticerr.Unavailable("only %d of %d required replicas available", aliveCount, expected)
	}

	id, q := c.registry.register(kind, expected)
	defer c.registry.retire(id)

	for _, target := range targets {
		replication := !target.Equal(primary)
		role := storage.RolePrimary
		if replication {
			role = storage.RoleReplication
		}
		rq := build(replication)
		rq.QueryID = id

		if c.LocalIP.Equal(target) {
			go func(rq *remoteQuery, role storage.Role) {
				rows, err := execLocal(rq, role)
				if err != nil {
					q.reportFailure(err)
					return
				}
				q.reportSuccess(rows)
			}(rq, role)
			continue
		}

		go func(target net.IP, rq *remoteQuery) {
			body, err := encodeRemote(rq)
			if err != nil {
				q.reportFailure(err)
				return
			}
			if err := c.Transport.Send(c.peerAddr(target), internode.OpCodeQuery, body); err != nil {
				q.reportFailure(err)
			}
		}(target, rq)
	}

	select {
	case <-q.done:
		return q, nil
	case <-time.After(c.Timeout):
		return q, fmt.Errorf("timeout")
	}
}

func (c *Coordinator) isAlive(ip net.IP) bool {
	if c.IsAlive != nil {
		return c.IsAlive(ip)
	}
	return c.Partitioner.Contains(ip)
}

func encodeRemote(rq *remoteQuery) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := encodeRemoteQuery(rq, buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HandleQuery processes a remote-origin internode Query body against this node's local storage
// engine and replies with a Response carrying the outcome.
func (c *Coordinator) HandleQuery(from net.IP, body []byte) {
	rq, err := decodeRemoteQuery(body)
	if err != nil {
		log.Error().Err(err).Msg("coordinator: cannot decode remote query")
		return
	}
	role := storage.RolePrimary
	if rq.Replication {
		role = storage.RoleReplication
	}
	rows, err := c.applyRemote(rq, role)
	resp := &remoteResponse{QueryID: rq.QueryID}
	if err != nil {
		rerr := rusticerr.AsErr(err)
		resp.Success = false
		resp.ErrorKind = uint8(rerr.Kind)
		resp.ErrorText = rerr.Message
	} else {
		resp.Success = true
		resp.Rows = toRemoteRows(rows)
	}
	buf := &bytes.Buffer{}
	if err := encodeRemoteResponse(resp, buf); err != nil {
		log.Error().Err(err).Msg("coordinator: cannot encode response")
		return
	}
	if err := c.Transport.Send(c.peerAddr(from), internode.OpCodeResponse, buf.Bytes()); err != nil {
		log.Debug().Err(err).Msgf("coordinator: cannot send response to %v", from)
	}
}

// HandleResponse routes a remote-origin internode Response body to its open query.
func (c *Coordinator) HandleResponse(_ net.IP, body []byte) {
	resp, err := decodeRemoteResponse(body)
	if err != nil {
		log.Error().Err(err).Msg("coordinator: cannot decode remote response")
		return
	}
	q, ok := c.registry.lookup(resp.QueryID)
	if !ok {
		return
	}
	if !resp.Success {
		q.reportFailure(&rusticerr.Err{Kind: rusticerr.Kind(resp.ErrorKind), Message: resp.ErrorText})
		return
	}
	q.reportSuccess(fromRemoteRows(resp.Rows))
}

// applyRemote executes a decoded remoteQuery against the local storage engine.
func (c *Coordinator) applyRemote(rq *remoteQuery, role storage.Role) ([]storage.ResultRow, error) {
	switch rq.Op {
	case remoteOpInsert:
		stmt := &cql.Insert{Keyspace: rq.Keyspace, Table: rq.Table, Columns: rq.Columns, Values: rq.Values, IfNotExists: rq.IfNotExists}
		return nil, c.Storage.Insert(stmt, role, rq.Timestamp)
	case remoteOpUpdate:
		setOrder := rq.SetColumns
		stmt := &cql.Update{Keyspace: rq.Keyspace, Table: rq.Table, Set: rq.SetValues, SetOrder: setOrder}
		return nil, c.Storage.Update(stmt, role, rq.KeyValues, rq.Timestamp)
	case remoteOpDelete:
		return nil, c.Storage.Delete(rq.Keyspace, rq.Table, role, rq.KeyValues, rq.DeleteColumns, rq.Timestamp)
	case remoteOpSelect:
		stmt := &cql.Select{Keyspace: rq.Keyspace, Table: rq.Table, Where: rq.Where, OrderBy: rq.OrderBy, Limit: int(rq.Limit)}
		return c.Storage.Select(stmt, role)
	default:
		return nil, rusticerr.ServerError("unknown remote op %d", rq.Op)
	}
}
