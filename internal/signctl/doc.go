// Package signctl implements the operator command-line tool. It talks to
// the operator gRPC service and can mint operator tokens from the shared
// secret.
//
// Usage:
//
//	signctl [-addr host:port] [-token JWT] [-operator name] [-raw-secret] <command> [flags]
//
// Commands:
//
//	token            print an operator token
//	issue-link       -contract N [-mode stateless|single_use] [-send]
//	publish-terms    -file path (or stdin) [-activate]
//	activate-terms   -id N
//	set-schedule     -contract N -stage "Deposit=1000.00" ... (none clears)
//	complete         -contract N
//	sweep
package signctl
