// Package log captures protocol events of the signal distribution stack.
//
// It is separate from operational logging (slog): protocol capture produces a
// machine-readable trace of every frame, decoded message and peer state
// change, which the "vsd log" command can filter and print later.
//
// # Basic Usage
//
//	// Console output via slog
//	ctx := vsd.New(tr, vsd.WithProtocolLogger(log.NewSlogAdapter(slog.Default())))
//
//	// Binary capture
//	fl, _ := log.NewFileLogger("/var/log/vsd/node.vlog")
//	ctx := vsd.New(tr, vsd.WithProtocolLogger(fl))
//
//	// Both
//	ctx := vsd.New(tr, vsd.WithProtocolLogger(log.NewMultiLogger(adapter, fl)))
//
// # Layers
//
//   - Transport: raw frames (FrameEvent)
//   - Wire: decoded messages (MessageEvent)
//   - Context: peer and processor state changes (StateChangeEvent)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Capture files are a plain sequence of CBOR-encoded events with integer
// keys, conventionally named *.vlog.
package log
