// Package server implements an MCP (Model Context Protocol) server for
// AprilTag detection.
//
// The server communicates over stdio using JSON-RPC 2.0, one request per
// line on stdin and one response per line on stdout. Logs go to stderr.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - apriltag_detect: Detect tags in an image file, optionally within a
//     region, with optional visualization and annotated output
//   - apriltag_families: List known and registered tag families
//   - apriltag_image_info: Get image dimensions and format
//
// # Detector Sharing
//
// A single detector serves every request. Calls into it are serialized with
// a mutex, so requests are processed one detection at a time. Families named
// in a request are registered on the shared detector and stay registered.
//
// # Image Caching
//
// Decoded images are cached by path for the lifetime of the process, so
// repeated detection on the same file skips disk I/O.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
package server
