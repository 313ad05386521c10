// Package graph implements the core of a realtime media-processing graph:
// a directed topology of Nodes connected by Links between their Ports,
// scheduled by one or more Drivers running a barrier-synchronized,
// per-cycle activation protocol on a dedicated goroutine.
//
// Topology mutation (creating nodes, wiring links, destroying entities)
// happens on whatever goroutine the caller uses and updates ports, links and
// fan-in counts directly; the target list that Driver.RecalcGraph derives
// from it is installed via an invoke queue and takes effect at the next
// cycle boundary. Beyond a Backend's Process method and the lock-free
// ActivationRecord primitives, the realtime goroutine takes short mutex
// locks (the Driver's target list, node state, cycle metrics) that the main
// thread also takes, and it allocates.
//
// Remote transport, permission enforcement, the concrete wire format used
// for buffer format negotiation, and persistence of graph state are
// explicitly out of scope; see DESIGN.md for what replaces each of those
// in this implementation.
package graph
