package coordinator

import (
	"net"

	"github.com/rs/zerolog/log"

	"github.com/rusticdb/rusticdb/cql"
	"github.com/rusticdb/rusticdb/internode"
	"github.com/rusticdb/rusticdb/schema"
	"github.com/rusticdb/rusticdb/storage"
)

// Coordinator implements gossip.MembershipListener so that ring changes observed by the gossip
// engine drive §4.5's redistribution and §4.6's schema dissemination.

// OnEndpointUp relocates every row this node owns or replicates that the newly-live ip now also
// owns or replicates, per §4.5. The transfer is fire-and-forget: it reuses the normal upsert path
// on the receiving end, so a retried or duplicate transfer is harmless.
func (c *Coordinator) OnEndpointUp(ip net.IP) {
	log.Info().Msgf("coordinator: endpoint %v up, redistributing owned partitions", ip)
	go c.redistributeTo(ip)
}

// OnEndpointDown logs the transition. No immediate action is needed: reads and writes already
// route around a DOWN endpoint via isAlive, and its data remains present on the remaining
// replicas until it either recovers or is removed.
func (c *Coordinator) OnEndpointDown(ip net.IP) {
	log.Warn().Msgf("coordinator: endpoint %v marked down", ip)
}

// OnEndpointRemoved logs the transition. The ring itself is updated by whatever wires the gossip
// engine to the partitioner; the coordinator only needs to stop treating ip as a valid target,
// which isAlive already achieves via Partitioner.Contains once the ring drops it.
func (c *Coordinator) OnEndpointRemoved(ip net.IP) {
	log.Warn().Msgf("coordinator: endpoint %v removed from the ring", ip)
}

// OnSchemaAdopted is called after gossip merges a newer schema snapshot from a peer (§4.6): the
// local storage engine must learn about any keyspace or table it did not itself create before it
// can serve reads or writes for it.
func (c *Coordinator) OnSchemaAdopted() {
	c.ensureSchemaLocal()
}

func (c *Coordinator) redistributeTo(ip net.IP) {
	for ksName, ks := range c.Catalog.Snapshot() {
		for _, t := range ks.Tables {
			c.redistributeTable(ip, ksName, t)
		}
	}
}

func (c *Coordinator) redistributeTable(ip net.IP, keyspace string, t *schema.TableSchema) {
	rows, err := c.Storage.Select(&cql.Select{Keyspace: keyspace, Table: t.Name}, storage.RolePrimary)
	if err != nil {
		log.Debug().Err(err).Msgf("coordinator: redistribution skipped %s.%s", keyspace, t.Name)
		return
	}
	if replicated, err := c.Storage.Select(&cql.Select{Keyspace: keyspace, Table: t.Name}, storage.RoleReplication); err == nil {
		rows = append(rows, replicated...)
	}
	pk := t.PartitionKeys()
	columns := t.ColumnNames()
	for _, r := range rows {
		if r.Tombstone {
			continue
		}
		partitionKey := rowIdentity(r.Values, pk)
		primary, replicas, err := c.targets(keyspace, partitionKey)
		if err != nil {
			continue
		}
		role, ok := targetRole(ip, primary, replicas)
		if !ok {
			continue
		}
		values := make([]string, len(columns))
		for i, name := range columns {
			values[i] = r.Values[name]
		}
		rq := &remoteQuery{
			Keyspace:    keyspace,
			Table:       t.Name,
			Op:          remoteOpInsert,
			Timestamp:   r.Timestamp,
			Columns:     columns,
			Values:      values,
			Replication: role == storage.RoleReplication,
		}
		body, err := encodeRemote(rq)
		if err != nil {
			log.Error().Err(err).Msg("coordinator: cannot encode redistribution query")
			continue
		}
		if err := c.Transport.Send(c.peerAddr(ip), internode.OpCodeQuery, body); err != nil {
			log.Debug().Err(err).Msgf("coordinator: redistribution send to %v failed", ip)
		}
	}
}

func targetRole(ip net.IP, primary net.IP, replicas []net.IP) (storage.Role, bool) {
	if ip.Equal(primary) {
		return storage.RolePrimary, true
	}
	for _, r := range replicas {
		if ip.Equal(r) {
			return storage.RoleReplication, true
		}
	}
	return "", false
}
