package coordinator

import (
	"github.com/rs/zerolog/log"

	"github.com/rusticdb/rusticdb/client"
	"github.com/rusticdb/rusticdb/cql"
	"github.com/rusticdb/rusticdb/frame"
	"github.com/rusticdb/rusticdb/message"
	"github.com/rusticdb/rusticdb/primitive"
	"github.com/rusticdb/rusticdb/rusticerr"
)

// NewQueryHandler returns a client.RequestHandler that parses an incoming QUERY request's CQL
// text and runs it through Execute, translating the outcome to a RESULT or error frame. It is the
// one RequestHandler a node registers that actually knows about keyspaces, tables and consistency
// levels; everything else (USE, REGISTER, handshake) is handled upstream of it.
func (c *Coordinator) NewQueryHandler() client.RequestHandler {
	return func(request *frame.Frame, conn *client.CqlServerConnection, _ client.RequestHandlerContext) *frame.Frame {
		query, ok := request.Body.Message.(*message.Query)
		if !ok {
			return nil
		}
		stmt, err := cql.Parse(query.Query)
		if err != nil {
			return errorFrame(request, err)
		}
		consistency := primitiveConsistency(query.Options)
		result, err := c.Execute(stmt, consistency, conn.String())
		if err != nil {
			return errorFrame(request, err)
		}
		return frame.NewFrame(request.Header.Version, request.Header.StreamId, result)
	}
}

func errorFrame(request *frame.Frame, err error) *frame.Frame {
	rerr := rusticerr.AsErr(err)
	if rerr == nil {
		log.Error().Err(err).Msg("coordinator: unexpected non-rusticerr error")
		rerr = rusticerr.ServerError("%v", err)
	}
	return frame.NewFrame(request.Header.Version, request.Header.StreamId, rerr.ToMessage())
}

func primitiveConsistency(opts *message.QueryOptions) primitive.ConsistencyLevel {
	if opts == nil {
		return primitive.ConsistencyLevelQuorum
	}
	return opts.Consistency
}
