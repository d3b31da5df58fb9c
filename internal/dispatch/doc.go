// Package dispatch routes inbound transport messages to per-topic handlers.
//
// Every registered topic is an independent actor: it owns an unbounded
// mailbox and a single consumer goroutine that calls its Handler once per
// message, in arrival order. A slow or failing handler therefore delays
// only its own topic.
//
// Message flow:
//
//	transport callback ──▶ Deliver ──▶ inbound mailbox ──▶ Run
//	                                                        │ topic lookup
//	                       ┌────────────────────────────────┴──────────┐
//	                  mailbox(/a/control) ──▶ consumer ──▶ Handler    unknown: warn + drop
//
// Deliver never blocks, so the transport's network goroutine is never
// held up by handler work.
//
// Lifecycle:
//
//	d := dispatch.New(transport, qos)
//	d.Register(topic, handler)
//	d.Start(ctx)   // subscribe + start consumers
//	go d.Run(ctx)  // route inbound messages
//	...
//	d.Stop()       // unsubscribe, stop consumers, wait
package dispatch
