// Package client implements the full-duplex connection engine: a request queue, reader and writer
// tasks, a keepalive/idle watchdog, and a run supervisor that multiplex pipelined commands over a
// single socket while preserving strict FIFO request/response ordering.
//
// The source this core is descended from models C4-C9 as tasks sharing one executor without locks.
// Go has no equivalent of a single-threaded cooperative executor, so this package translates that
// invariant into Go's own idiom: the reader, writer and watchdog run as separate goroutines under one
// errgroup.Group, coordinating only through the request queue (guarded by its own mutex) and two
// channels (the writable wakeup signal and the push message channel) rather than through shared
// unsynchronized state.
package client
