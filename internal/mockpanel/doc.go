// Package mockpanel implements a local stand-in for the panel client API.
//
// It serves the endpoints a deployment uses:
//   - POST /api/client/servers/{server}/files/write?file=PATH
//   - POST /api/client/servers/{server}/files/decompress
//   - POST /api/client/servers/{server}/files/delete
//   - POST /api/client/servers/{server}/power
//
// Files are stored on disk under Root/<server>/, archives are extracted with
// the standard library (zip, tar, tar.gz), and every call is recorded so tests
// can assert on ordering. Requests must carry the configured bearer token.
//
// Optional per-IP rate limiting and write fault injection make it usable for
// exercising a client's retry behavior.
package mockpanel
