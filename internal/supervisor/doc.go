// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

/*
Package supervisor builds the suture v4 supervision tree that runs the
Parley server.

The tree has three layers for failure isolation:

  - session: BadgerDB garbage collection for the token revocation store
  - messaging: the WebSocket hub event loop
  - api: the HTTP server

A crash in the messaging layer restarts the hub without tearing down
the HTTP server; connected clients reconnect and fall back to polling
in the meantime. Supervisor events are logged through sutureslog,
bridged into zerolog by the logging package's slog adapter.
*/
package supervisor
