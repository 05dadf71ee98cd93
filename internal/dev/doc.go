// Package dev provides the development server and hot reload.
//
// The server watches the static directory with fsnotify, rebuilds the
// endpoint manifest in build mode after each debounced batch of changes,
// swaps the static handler for the new manifest and notifies connected
// browsers over a WebSocket.
//
// # Usage
//
//	srv, err := dev.NewServer(dev.ServerOptions{Config: cfg})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
//
// # Hot Reload Protocol
//
// Pages include /_assetkit/client.js, which connects to /_assetkit/reload.
// Messages are JSON-encoded:
//
//	{"type": "reload"}                // full page reload
//	{"type": "css", "files": [...]}   // stylesheet-only reload
//	{"type": "error", "error": "..."} // shows the error overlay
//	{"type": "clear"}                 // clears the error overlay
//
// Hot reload can be disabled with dev.hotReload=false in assetkit.json.
package dev
