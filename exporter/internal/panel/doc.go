// Package panel is a minimal client for the Pterodactyl panel REST API.
//
// Client.Get performs one authenticated GET and decodes the JSON body. It has
// no retry logic: a failed call surfaces immediately as a *TransportError
// (network, TLS, deadline) or a *StatusError (non-2xx, with the panel's
// errors[] payload when present).
//
// Authentication is injected by authRoundTripper: application endpoints use
// the application key, /api/client/ endpoints use the client key (falling
// back to the application key). Every request is counted on the optional
// CounterVec passed to New, labelled by status code and method.
//
// ListServers and Resources wrap the two endpoints the collector needs and
// translate the wire format into pkg/types values.
package panel
