/*
Package worker manages the declared worker fleet.

A fleet file declares each worker with a probe command and the commands
that implement healing actions against it:

	version: "1.0"
	workers:
	  - id: runner-1
	    role: runner
	    dependsOn: [postgres, redis]
	    checkCommand: "curl -fsS localhost:8081/ping"
	    restartCommand: "systemctl restart runner-1"
	    rebalanceCommand: "runnerctl drain runner-1"

The fleet fills both sides of the control loop: it is the worker
provider (concurrent exec probes, probe duration doubling as the
latency sample) and the worker executor (restart and rebalance run the
declared command through the shell with a timeout). A probe that exits
non-zero or times out reports the worker down. The dependsOn edges feed
cascading-failure detection.
*/
package worker
