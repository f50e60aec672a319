/*
Package probe implements health probing for supervised nodes.

Every prober maps its mechanism onto the same four-value verdict:

	healthy      the node answered and looks good
	unhealthy    the node answered but reported a problem
	unreachable  the node could not be contacted at all
	timeout      the probe did not finish within its deadline

Three mechanisms are provided, selected per node in the manifest:

  - http: GET a health endpoint, status range decides the verdict
  - tcp: open a connection, success decides the verdict
  - exec: run a command, exit code decides the verdict

Callers bound every probe with a context deadline; probers must return a
timeout verdict rather than block past it. The guardian treats
unreachable and timeout exactly like unhealthy for failure counting
(fail-open toward "assume bad"), while unreachable additionally marks
the node as a crash candidate.
*/
package probe
