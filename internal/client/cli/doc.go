// Package cli implements capsulectl, the operator and uploader tool for a
// memorylane server.
//
// Commands:
//   - ping: check the admin gRPC endpoint
//   - trigger: run one unlock sweep now and print what was delivered
//   - login: sign in over the HTTP API and store the session locally
//   - upload: push a file to object storage and print its item key
//
// Configuration comes from the config package; NewRootCmd binds the flags.
package cli
