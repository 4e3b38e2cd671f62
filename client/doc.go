/*

Package client implements the client-facing native protocol transport: a frame-level connection abstraction
(CqlClientConnection / CqlServerConnection) shared by the coordinator-facing server and by in-process test
harnesses, plus the STARTUP/AUTHENTICATE handshake and a small set of composable RequestHandlers.

CqlServer accepts connections and dispatches inbound frames to a chain of RequestHandlers; the first handler to
return a non-nil response frame wins. HandshakeHandler drives the handshake state machine per connection, and the
query dispatch handler that turns parsed statements into coordinator calls (Coordinator.NewQueryHandler) is
registered alongside it by cmd/node's main.

*/
package client
