// Package server implements the MCP (Model Context Protocol) server for image
// normalization tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the conversion
// pipeline through the MCP protocol, so MCP clients can convert, resize and
// inspect images given as file paths, URLs or data URLs.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Conversion:
//   - image_convert: Convert and resize one or several sources
//   - image_read: Read a source as text, binary string, data URL or bytes
//
// Inspection:
//   - image_fit_dimensions: Compute an output size without touching pixels
//   - image_data_url_info: Report a data URL's type and decoded size
//   - image_info: Report dimensions and format of an image
//
// # Conversion Defaults
//
// Output type, quality, resize bounds and the conversion timeout come from
// the configuration passed to New; tool arguments override them per call.
// Every tool call runs the conversion asynchronously and waits for it, so
// paths and URLs are accepted everywhere. Nothing is cached between calls.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv, err := server.New(cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
