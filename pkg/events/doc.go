/*
Package events distributes guardian events to interested subscribers.

The guardian publishes an event for every noteworthy decision: a node
failing or crashing, a restart being issued, completing or failing, the
restart budget exhausting or replenishing, and a refused crash that
would have violated the availability floor. The surrounding system
(logging, alerting, the admin API's recent-events buffer) subscribes and
decides how to present them; the guardian itself never blocks on a slow
consumer, so each subscriber gets a buffered channel and full buffers
drop rather than stall.
*/
package events
