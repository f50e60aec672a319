/*
Package config loads the meshguard daemon configuration.

Two files drive the daemon. A TOML configuration file carries tunables:
failure and restart budgets, probe cadence and timeouts, the restart
completion deadline, listen addresses and logging. A YAML node manifest
declares the supervised node set with each node's probe and restart
mechanism:

	apiVersion: meshguard/v1
	kind: NodeSet
	nodes:
	  - id: primary
	    probe:
	      kind: http
	      endpoint: http://10.0.0.2:8080/health
	    restart:
	      kind: exec
	      command: ["ssh", "10.0.0.2", "systemctl", "restart", "app"]

Both loaders validate eagerly so a malformed file fails the process at
startup instead of surfacing mid-run.
*/
package config
