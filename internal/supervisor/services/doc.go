// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

/*
Package services wraps the server's long-running components as
suture.Service implementations.

Each wrapper translates a component's native lifecycle into suture's
context-aware Serve pattern:

  - HTTPServerService: http.Server's blocking ListenAndServe plus
    graceful Shutdown on context cancellation
  - HubService: the WebSocket hub's RunWithContext loop
  - SessionGCService: periodic BadgerDB value log garbage collection
    for the token revocation store

The wrappers depend on small local interfaces rather than the concrete
packages, which keeps them testable and free of import cycles.
*/
package services
