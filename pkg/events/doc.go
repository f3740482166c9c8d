/*
Package events provides an in-process broker for the egress event
stream.

Events are fire-and-forget observability. Publish never blocks the
control loop: the broker buffer drops on overflow and each subscriber
has its own buffer that drops independently, so one slow consumer
cannot stall another or the publisher.
*/
package events
