// Package relay pushes order status changes to websocket clients.
//
// Subscribe Server.Publish to an ordersync.Bus and every change observed by
// any session is sent to every client connected at /events as
//
//	{"type":"orderStatusChanged","detail":{"orderId":"42","oldStatus":"PENDING","newStatus":"CONFIRMED","timestamp":"...","validTransition":true}}
//
// Each client has a bounded queue drained by its own writer goroutine.
// Publish only enqueues, so a stalled client never holds up a poll; once its
// queue is full the client is disconnected. Frames sent by clients are read
// and discarded.
package relay
