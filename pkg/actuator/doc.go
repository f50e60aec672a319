/*
Package actuator performs the actual restart of supervised nodes.

Restart is asynchronous: the Restarter returns a future immediately and
resolves it with the terminal outcome (completed or failed) when the
mechanism finishes. The guardian waits on the future off the lock, so a
slow restart never blocks state transitions for other nodes.

Two mechanisms are provided: exec (run a configured command such as a
systemctl or SSH invocation) and http (POST to a restart endpoint). Both
honor the context deadline the guardian derives from the configured
restart timeout, so a hung mechanism resolves to failed rather than
leaving the future pending forever.
*/
package actuator
