// Package keygen generates key pairs for SSH authentication.
//
// Keys are produced in PEM format (private) and OpenSSH authorized_keys
// format (public). The docker substrate and the SSH tests use them to
// authorize the vanilla engine on instances.
package keygen
