// Package websocket pushes viewer results to browsers. A Hub keeps the
// connected clients and the viewer session each one follows; Publish routes a
// message to the subscribers of one session, or to everyone when the session
// id is empty.
//
// Clients send two commands:
//
//	{"type":"heartbeat"}
//	{"type":"subscribe","session_id":"<id>"}
//
// Every outbound frame is a Message envelope carrying its type, session id,
// payload, timestamp and the trace id of the request that produced it.
package websocket
