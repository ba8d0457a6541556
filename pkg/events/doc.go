/*
Package events implements the typed event bus called for in the design
notes: it replaces the original implementation's pre/post-failover callback
hooks with a lazy stream subscribers pull from.

Every event carries {ID, Type, NodeID, ClusterID, Timestamp, Message,
Metadata}. The broker
buffers up to 100 undelivered events and fans them out to each subscriber's
own 50-event buffer; a slow or absent subscriber drops events rather than
ever blocking Publish, so a wedged HTTP client watching the event stream can
never stall the failover orchestrator or the consensus worker that publish
into it.

Synchronous subscribers (today: none — logging and metrics consume the
stream directly) would run inline before the orchestrator's next step;
asynchronous ones (the HTTP /events feed) run on the broker's own
goroutine.
*/
package events
