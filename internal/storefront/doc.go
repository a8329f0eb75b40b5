// Package storefront provides an HTTP client for the storefront's order
// synchronization API.
//
// # Overview
//
// The storefront exposes a small set of JSON endpoints under /api/sync that
// report the authoritative status of an order and arbitrate conflicts between
// what a client last saw and what the server holds. This package wraps those
// endpoints in a typed client; it never implements the server side.
//
// # Architecture
//
//   - client.go: HTTP client, request construction, error decoding
//   - types.go: Data structures mirroring the sync API schema and the
//     Timestamp codec
//
// # Client Usage
//
//	client, err := storefront.NewClient("shop.example.com:8080",
//		storefront.WithTimeout(10*time.Second))
//	if err != nil {
//		log.Fatalf("failed to create client: %v", err)
//	}
//
//	snap, err := client.FetchOrderStatus(ctx, "1001")
//	if err != nil {
//		log.Printf("status poll failed: %v", err)
//	}
//
// # API Endpoints
//
//   - GET  /api/sync/order/{id}/status: current status snapshot
//   - POST /api/sync/order/{id}/resolve-conflict: submit the client's belief
//   - GET  /api/sync/order/{id}/validate: server-side consistency check
//   - POST /api/sync/order/{id}/fix: admin-only repair
//   - GET  /api/sync/health: service health
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and timeout control
//   - Set Accept: application/json and User-Agent: ordersync/0.1
//   - Carry a fresh X-Request-ID (UUID) so client and server logs correlate
//   - Have a 10-second timeout unless WithTimeout or WithHTTPClient is used
//
// # Error Handling
//
// Any status outside 2xx is returned as *APIError, which includes the
// "error" and "message" fields the storefront puts in failure bodies. Network
// failures are wrapped with "execute request" and malformed bodies with
// "decode response". Use errors.As or StatusCode to inspect them.
//
// # Timestamps
//
// The storefront is not consistent about date-time encoding: depending on
// the endpoint and its serializer it sends RFC 3339 strings, zone-less
// local date-times, or [year, month, day, hour, minute, second, nanos]
// arrays. Timestamp accepts all of them; zone-less values are interpreted in
// the local time zone. Outgoing timestamps are ISO-8601 UTC with millisecond
// precision.
package storefront
